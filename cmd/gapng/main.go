// Command gapng inspects and decodes PNG and APNG images from the command line.
//
// Usage:
//
//	gapng dec [options] <input.png>   PNG/APNG → PNG/JPEG/GIF (use "-" for stdin, -o - for stdout)
//	gapng info <input.png>            Display PNG/APNG metadata
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deepteams/apng"
	"github.com/deepteams/apng/animation"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "dec":
		err = runDec(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "gapng: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "gapng: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  gapng dec [options] <input.png>   Decode PNG/APNG to PNG, JPEG, or GIF
  gapng info <input.png>            Display PNG/APNG metadata

Use "-" as input to read from stdin, "-o -" to write to stdout.

Run "gapng <command> -h" for command-specific options.
`)
}

// openInput returns an io.ReadCloser for the given path.
// If path is "-", stdin is returned (caller should not close).
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// --- dec ---

func runDec(args []string) error {
	fs := flag.NewFlagSet("dec", flag.ContinueOnError)
	output := fs.String("o", "", `output path (default: .png or .gif, "-" for stdout)`)
	fmtFlag := fs.String("fmt", "", "output format: png, jpeg (auto-detect from extension if omitted)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("dec: missing input file\nUsage: gapng dec [options] <input.png>")
	}
	inputPath := fs.Arg(0)

	in, err := openInput(inputPath)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("dec: reading input: %w", err)
	}

	feat, err := apng.GetFeatures(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("dec: %w", err)
	}

	if feat.HasAnimation {
		return decodeAnimated(data, inputPath, *output)
	}
	return decodeStatic(data, inputPath, *output, *fmtFlag)
}

// detectOutputFormat returns "png", "jpeg", or "gif" based on flag/extension.
func detectOutputFormat(fmtFlag, outputPath string) string {
	if fmtFlag != "" {
		return strings.ToLower(fmtFlag)
	}
	if outputPath != "" && outputPath != "-" {
		switch strings.ToLower(filepath.Ext(outputPath)) {
		case ".jpg", ".jpeg":
			return "jpeg"
		case ".gif":
			return "gif"
		}
	}
	return "png"
}

func decodeStatic(data []byte, inputPath, outputPath, fmtFlag string) error {
	img, err := apng.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("dec: %w", err)
	}

	outFmt := detectOutputFormat(fmtFlag, outputPath)

	if outputPath == "-" {
		return encodeImage(os.Stdout, img, outFmt)
	}

	if outputPath == "" {
		ext := ".png"
		if outFmt == "jpeg" {
			ext = ".jpg"
		}
		if inputPath == "-" {
			outputPath = "output" + ext
		} else {
			base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
			outputPath = base + ".out" + ext
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}

	if err := encodeImage(out, img, outFmt); err != nil {
		out.Close()
		os.Remove(outputPath)
		return fmt.Errorf("dec: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return err
	}

	fmt.Fprintf(os.Stderr, "Decoded %s → %s\n", inputPath, outputPath)
	return nil
}

// encodeImage writes img in the specified format to w.
func encodeImage(w io.Writer, img image.Image, format string) error {
	switch format {
	case "jpeg", "jpg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(w, img)
	}
}

func decodeAnimated(data []byte, inputPath, outputPath string) error {
	anim, err := animation.DecodeBytes(data)
	if err != nil {
		return fmt.Errorf("dec: %w", err)
	}

	dec := animation.NewAnimDecoder(anim)
	g := &gif.GIF{
		LoopCount: anim.LoopCount,
	}

	for dec.HasNext() {
		frame, dur, err := dec.NextFrame()
		if err != nil {
			return fmt.Errorf("dec: %w", err)
		}

		// Quantize to paletted image using Plan9 palette + Floyd-Steinberg dithering.
		b := frame.Bounds()
		paletted := image.NewPaletted(b, palette.Plan9)
		draw.FloydSteinberg.Draw(paletted, b, frame, b.Min)

		g.Image = append(g.Image, paletted)
		// GIF delay is in 1/100th of a second.
		delay := int(dur / (10 * time.Millisecond))
		if delay < 1 {
			delay = 10 // default 100ms
		}
		g.Delay = append(g.Delay, delay)
	}

	if outputPath == "-" {
		return gif.EncodeAll(os.Stdout, g)
	}

	if outputPath == "" {
		if inputPath == "-" {
			outputPath = "output.gif"
		} else {
			base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
			outputPath = base + ".gif"
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}

	if err := gif.EncodeAll(out, g); err != nil {
		out.Close()
		os.Remove(outputPath)
		return fmt.Errorf("dec: encoding GIF: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return err
	}

	fmt.Fprintf(os.Stderr, "Decoded %s → %s (%d frames)\n", inputPath, outputPath, len(g.Image))
	return nil
}

// --- info ---

func runInfo(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("info: missing input file\nUsage: gapng info <input.png>")
	}
	inputPath := args[0]

	in, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	feat, err := apng.GetFeatures(in)
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}

	name := inputPath
	if inputPath == "-" {
		name = "<stdin>"
	}

	fmt.Printf("File:       %s\n", name)
	fmt.Printf("Format:     %s\n", feat.Format)
	fmt.Printf("Dimensions: %d x %d\n", feat.Width, feat.Height)
	fmt.Printf("Bit depth:  %d\n", feat.BitDepth)
	fmt.Printf("Palette:    %v\n", feat.HasPalette)
	fmt.Printf("Animation:  %v\n", feat.HasAnimation)
	if feat.HasAnimation {
		fmt.Printf("Frames:     %d\n", feat.FrameCount)
		loop := "infinite"
		if feat.PlayCount > 0 {
			loop = fmt.Sprintf("%d", feat.PlayCount)
		}
		fmt.Printf("Play count: %s\n", loop)
	}

	if inputPath != "-" {
		fi, err := os.Stat(inputPath)
		if err == nil {
			fmt.Printf("File size:  %d bytes\n", fi.Size())
		}
	}

	return nil
}
