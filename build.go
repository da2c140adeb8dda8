//go:build ignore

// build.go - lisstat build system
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: build, test, clean, release, package

package main

import (
	"archive/zip"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	module  = "lisstat"
	binary  = "lisstat"
	mainPkg = "./cmd/lisstat"
)

// BuildContext holds configuration for the build process
type BuildContext struct {
	Verbose   bool
	Version   string
	GitCommit string
	BuildTime string
}

// releaseTargets are the GOOS/GOARCH pairs built by the release target
var releaseTargets = [][2]string{
	{"linux", "amd64"},
	{"linux", "arm64"},
	{"windows", "amd64"},
	{"darwin", "amd64"},
	{"darwin", "arm64"},
}

var (
	rootDir string
	distDir string

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	target := flag.String("target", "build", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	version := flag.String("version", "", "Version stamped into the binary (default: the one in pkg/contracts)")
	flag.Parse()

	cwd, err := os.Getwd()
	if err != nil {
		printError(fmt.Sprintf("Failed to get current directory: %v", err))
		os.Exit(1)
	}
	rootDir = cwd
	distDir = filepath.Join(rootDir, "dist")

	if runtime.GOOS == "windows" {
		colorReset, colorRed, colorGreen, colorYellow, colorBlue, colorCyan = "", "", "", "", "", ""
	}

	printHeader()
	startTime := time.Now()

	ctx := &BuildContext{
		Verbose:   *verbose,
		Version:   *version,
		GitCommit: gitCommit(),
		BuildTime: time.Now().UTC().Format(time.RFC3339),
	}

	switch *target {
	case "build", "all":
		buildBinary(ctx, runtime.GOOS, runtime.GOARCH)
	case "test":
		runTests(ctx.Verbose)
	case "clean":
		clean()
	case "release":
		buildRelease(ctx)
	case "package":
		createPackage(ctx)
	default:
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "         lisstat - Build System            " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func printWarning(msg string) {
	fmt.Printf("%s[WARNING]%s %s\n", colorYellow, colorReset, msg)
}

// gitCommit returns the short HEAD hash, or "unknown" outside a checkout
func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

// ldflags stamps the version variables of pkg/contracts
func (ctx *BuildContext) ldflags() string {
	pkg := module + "/pkg/contracts"
	flags := []string{"-s", "-w",
		fmt.Sprintf("-X %s.BuildTime=%s", pkg, ctx.BuildTime),
		fmt.Sprintf("-X %s.GitCommit=%s", pkg, ctx.GitCommit),
	}
	if ctx.Version != "" {
		flags = append(flags, fmt.Sprintf("-X %s.Version=%s", pkg, ctx.Version))
	}
	return strings.Join(flags, " ")
}

func outputName(goos, goarch string) string {
	name := fmt.Sprintf("%s-%s-%s", binary, goos, goarch)
	if goos == "windows" {
		name += ".exe"
	}
	return name
}

// buildBinary cross-compiles the CLI into dist/
func buildBinary(ctx *BuildContext, goos, goarch string) string {
	if err := os.MkdirAll(distDir, 0755); err != nil {
		printError(fmt.Sprintf("Failed to create dist directory: %v", err))
		os.Exit(1)
	}

	outputPath := filepath.Join(distDir, outputName(goos, goarch))
	printInfo(fmt.Sprintf("Building %s for %s/%s...", binary, goos, goarch))

	args := []string{"build", "-trimpath", "-ldflags", ctx.ldflags(), "-o", outputPath}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	args = append(args, mainPkg)

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0", "GOOS="+goos, "GOARCH="+goarch)
	cmd.Stderr = os.Stderr
	if ctx.Verbose {
		fmt.Printf("Running: go %s\n", strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Failed to build %s/%s: %v", goos, goarch, err))
		os.Exit(1)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", filepath.Base(outputPath), float64(info.Size())/1024/1024))
	}
	return outputPath
}

func runTests(verbose bool) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
	printSuccess("All tests passed")
}

func clean() {
	printInfo("Cleaning build artifacts...")
	if err := os.RemoveAll(distDir); err != nil {
		printError(fmt.Sprintf("Failed to clean dist directory: %v", err))
		return
	}
	printSuccess("Build artifacts cleaned")
}

func buildRelease(ctx *BuildContext) []string {
	printInfo("Building release binaries...")
	clean()

	var built []string
	for _, t := range releaseTargets {
		built = append(built, buildBinary(ctx, t[0], t[1]))
	}
	return built
}

// createPackage builds every release binary and zips each with the docs
func createPackage(ctx *BuildContext) {
	printInfo("Creating distribution packages...")
	for _, bin := range buildRelease(ctx) {
		archive := strings.TrimSuffix(bin, ".exe") + ".zip"
		if err := zipFiles(archive, bin, "README.md", "DESIGN.md"); err != nil {
			printError(fmt.Sprintf("Failed to package %s: %v", filepath.Base(bin), err))
			os.Exit(1)
		}
		printInfo(fmt.Sprintf("Packaged %s", filepath.Base(archive)))
	}
	printSuccess("Distribution packages ready")
}

// zipFiles writes the files that exist into a flat archive
func zipFiles(archive string, files ...string) error {
	out, err := os.Create(archive)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, name := range files {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(rootDir, name)
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			printWarning(fmt.Sprintf("Skipping missing %s", name))
			continue
		}
		if err := addToZip(zw, path); err != nil {
			return err
		}
	}
	return zw.Close()
}

func addToZip(zw *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

func showHelp() {
	fmt.Println("Usage: go run build.go [-target=TARGET] [-v] [-version=X.Y.Z]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  build     Build lisstat for the host platform (default)")
	fmt.Println("  test      Run go test -race ./...")
	fmt.Println("  clean     Remove dist/")
	fmt.Println("  release   Cross-compile for every release platform")
	fmt.Println("  package   Release build zipped per platform with the docs")
}
