package main

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// binaryPath holds the path to the compiled gapng binary. Set in TestMain.
var binaryPath string

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "gapng-test-bin-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	binaryPath = filepath.Join(tmp, "gapng")
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = rootDir()
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		// Mark binary as empty so tests skip gracefully.
		binaryPath = ""
		os.Exit(m.Run())
	}

	os.Exit(m.Run())
}

// rootDir returns the absolute path of the cmd/gapng source directory.
func rootDir() string {
	dir, err := filepath.Abs(".")
	if err != nil {
		panic(err)
	}
	return dir
}

// skipIfNoBinary skips the test when the binary was not built.
func skipIfNoBinary(t *testing.T) {
	t.Helper()
	if binaryPath == "" {
		t.Skip("gapng binary not built; skipping")
	}
}

// runGapng executes gapng with the given arguments and optional stdin data.
// Returns stdout, stderr, and any error.
func runGapng(t *testing.T, stdin []byte, args ...string) (stdout, stderr []byte, err error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// createTestPNG generates a small 8x8 PNG image in the given directory and
// returns the file path. The image contains a simple gradient pattern.
func createTestPNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 32),
				G: uint8(y * 32),
				B: 128,
				A: 255,
			})
		}
	}
	path := filepath.Join(dir, "input.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating test PNG: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		t.Fatalf("encoding test PNG: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing test PNG: %v", err)
	}
	return path
}

// rawChunk assembles length+tag+payload+zero CRC. The decoder treats the CRC
// as opaque framing bytes.
func rawChunk(tag string, payload []byte) []byte {
	buf := make([]byte, 0, 12+len(payload))
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(payload)))
	buf = append(buf, length[:]...)
	buf = append(buf, tag...)
	buf = append(buf, payload...)
	buf = append(buf, 0, 0, 0, 0)
	return buf
}

// storedZlib wraps raw in a zlib stream using a single stored deflate block.
func storedZlib(raw []byte) []byte {
	buf := []byte{0x78, 0x01, 0x01}
	var lens [4]byte
	binary.LittleEndian.PutUint16(lens[0:2], uint16(len(raw)))
	binary.LittleEndian.PutUint16(lens[2:4], ^uint16(len(raw)))
	buf = append(buf, lens[:]...)
	buf = append(buf, raw...)
	return append(buf, 0, 0, 0, 0) // Adler-32 is not verified
}

// createTestAPNG writes a 2-frame 1x1 RGBA8 animation and returns its path.
func createTestAPNG(t *testing.T, dir string) string {
	t.Helper()

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 1)
	binary.BigEndian.PutUint32(ihdr[4:8], 1)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	actl := make([]byte, 8)
	binary.BigEndian.PutUint32(actl[0:4], 2) // frames
	binary.BigEndian.PutUint32(actl[4:8], 0) // infinite

	fctl := func(seq uint32) []byte {
		p := make([]byte, 26)
		binary.BigEndian.PutUint32(p[0:4], seq)
		binary.BigEndian.PutUint32(p[4:8], 1)   // width
		binary.BigEndian.PutUint32(p[8:12], 1)  // height
		binary.BigEndian.PutUint16(p[20:22], 5) // delay num
		binary.BigEndian.PutUint16(p[22:24], 100)
		return p
	}

	red := storedZlib([]byte{0, 0xff, 0, 0, 0xff})
	blue := storedZlib([]byte{0, 0, 0, 0xff, 0xff})
	fdat := append([]byte{0, 0, 0, 2}, blue...)

	var data []byte
	data = append(data, "\x89PNG\r\n\x1a\n"...)
	data = append(data, rawChunk("IHDR", ihdr)...)
	data = append(data, rawChunk("acTL", actl)...)
	data = append(data, rawChunk("fcTL", fctl(0))...)
	data = append(data, rawChunk("IDAT", red)...)
	data = append(data, rawChunk("fcTL", fctl(1))...)
	data = append(data, rawChunk("fdAT", fdat)...)
	data = append(data, rawChunk("IEND", nil)...)

	path := filepath.Join(dir, "anim.png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing test APNG: %v", err)
	}
	return path
}

// --- dec tests ---

func TestDec_PNGToPNG(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()

	pngPath := createTestPNG(t, dir)
	outPNG := filepath.Join(dir, "decoded.png")
	_, stderr, err := runGapng(t, nil, "dec", "-o", outPNG, pngPath)
	if err != nil {
		t.Fatalf("dec failed: %v\nstderr: %s", err, stderr)
	}

	f, err := os.Open(outPNG)
	if err != nil {
		t.Fatalf("opening decoded PNG: %v", err)
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decoding PNG config: %v", err)
	}
	if cfg.Width != 8 || cfg.Height != 8 {
		t.Errorf("decoded dimensions = %dx%d, want 8x8", cfg.Width, cfg.Height)
	}
}

func TestDec_PNGToJPEG(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()

	pngPath := createTestPNG(t, dir)
	outJPG := filepath.Join(dir, "decoded.jpg")
	_, stderr, err := runGapng(t, nil, "dec", "-o", outJPG, pngPath)
	if err != nil {
		t.Fatalf("dec to JPEG failed: %v\nstderr: %s", err, stderr)
	}

	data, err := os.ReadFile(outJPG)
	if err != nil {
		t.Fatalf("reading JPEG output: %v", err)
	}
	// JPEG files start with FF D8.
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Errorf("output does not look like a JPEG (first 2 bytes: %x)", data[:2])
	}
}

func TestDec_StdinStdout(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()

	pngPath := createTestPNG(t, dir)
	pngData, err := os.ReadFile(pngPath)
	if err != nil {
		t.Fatalf("reading test PNG: %v", err)
	}

	stdout, stderr, err := runGapng(t, pngData, "dec", "-o", "-", "-")
	if err != nil {
		t.Fatalf("dec stdin/stdout failed: %v\nstderr: %s", err, stderr)
	}
	if len(stdout) == 0 {
		t.Fatal("stdout output is empty")
	}

	pngSig := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	if len(stdout) < 8 || !bytes.Equal(stdout[:8], pngSig) {
		t.Error("stdout does not start with PNG signature")
	}
}

func TestDec_FormatFlag(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()

	pngPath := createTestPNG(t, dir)

	// Use -fmt jpeg with a .dat extension to verify flag overrides extension.
	outPath := filepath.Join(dir, "output.dat")
	_, stderr, err := runGapng(t, nil, "dec", "-fmt", "jpeg", "-o", outPath, pngPath)
	if err != nil {
		t.Fatalf("dec -fmt jpeg failed: %v\nstderr: %s", err, stderr)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Error("output with -fmt jpeg does not start with JPEG magic")
	}
}

func TestDec_AnimatedToGIF(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()

	apngPath := createTestAPNG(t, dir)
	outGIF := filepath.Join(dir, "anim.gif")
	_, stderr, err := runGapng(t, nil, "dec", "-o", outGIF, apngPath)
	if err != nil {
		t.Fatalf("dec animated failed: %v\nstderr: %s", err, stderr)
	}

	f, err := os.Open(outGIF)
	if err != nil {
		t.Fatalf("opening GIF output: %v", err)
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("decoding GIF: %v", err)
	}
	if len(g.Image) != 2 {
		t.Errorf("GIF frame count = %d, want 2", len(g.Image))
	}
}

func TestDec_MissingInput(t *testing.T) {
	skipIfNoBinary(t)
	_, _, err := runGapng(t, nil, "dec")
	if err == nil {
		t.Fatal("expected non-zero exit for missing input, got nil")
	}
}

func TestDec_NonexistentFile(t *testing.T) {
	skipIfNoBinary(t)
	_, _, err := runGapng(t, nil, "dec", "/nonexistent/file.png")
	if err == nil {
		t.Fatal("expected non-zero exit for nonexistent file, got nil")
	}
}

// --- info tests ---

func TestInfo_StillFile(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()

	pngPath := createTestPNG(t, dir)
	stdout, stderr, err := runGapng(t, nil, "info", pngPath)
	if err != nil {
		t.Fatalf("info failed: %v\nstderr: %s", err, stderr)
	}

	out := string(stdout)
	assertContains(t, out, "8 x 8", "expected dimensions '8 x 8'")
	assertContains(t, out, "Animation:  false", "expected still image")
	assertContains(t, out, "File size:", "expected 'File size:' for file input")
}

func TestInfo_AnimatedFile(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()

	apngPath := createTestAPNG(t, dir)
	stdout, stderr, err := runGapng(t, nil, "info", apngPath)
	if err != nil {
		t.Fatalf("info failed: %v\nstderr: %s", err, stderr)
	}

	out := string(stdout)
	assertContains(t, out, "Animation:  true", "expected animated image")
	assertContains(t, out, "Frames:     2", "expected 2 frames")
	assertContains(t, out, "infinite", "expected infinite play count")
}

func TestInfo_Stdin(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()

	pngPath := createTestPNG(t, dir)
	pngData, err := os.ReadFile(pngPath)
	if err != nil {
		t.Fatalf("reading test file: %v", err)
	}

	stdout, stderr, err := runGapng(t, pngData, "info", "-")
	if err != nil {
		t.Fatalf("info from stdin failed: %v\nstderr: %s", err, stderr)
	}

	out := string(stdout)
	assertContains(t, out, "<stdin>", "expected '<stdin>' as file name")
	assertContains(t, out, "8 x 8", "expected dimensions '8 x 8'")
}

func TestInfo_MissingInput(t *testing.T) {
	skipIfNoBinary(t)
	_, _, err := runGapng(t, nil, "info")
	if err == nil {
		t.Fatal("expected non-zero exit for missing input, got nil")
	}
}

// --- error cases ---

func TestUnknownCommand(t *testing.T) {
	skipIfNoBinary(t)
	_, _, err := runGapng(t, nil, "badcmd")
	if err == nil {
		t.Fatal("expected non-zero exit for unknown command, got nil")
	}
}

func TestNoArgs(t *testing.T) {
	skipIfNoBinary(t)
	_, _, err := runGapng(t, nil)
	if err == nil {
		t.Fatal("expected non-zero exit for no arguments, got nil")
	}
}

func TestHelp(t *testing.T) {
	skipIfNoBinary(t)

	// -h should exit with code 0.
	_, stderr, err := runGapng(t, nil, "-h")
	if err != nil {
		t.Fatalf("expected zero exit for -h, got: %v", err)
	}
	out := string(stderr)
	assertContains(t, out, "gapng dec", "expected usage text for dec")
	assertContains(t, out, "gapng info", "expected usage text for info")
}

// --- helper ---

func assertContains(t *testing.T, haystack, needle, msg string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Errorf("%s: %q not found in output:\n%s", msg, needle, haystack)
	}
}
