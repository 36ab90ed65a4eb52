package pkg

// DiscProcessor defines the operations exposed over GameCube disc images
type DiscProcessor interface {
	Info(inputFile string, verbose bool) error
	Dump(inputFile, outputDir string) error
	Patch(inputFile, manifestFile, outputFile string) error
}
