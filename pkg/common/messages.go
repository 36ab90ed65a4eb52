package common

import (
	"fmt"
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Global variable to control debug output
var VerboseMode bool = false

// SetVerboseMode enables or disables verbose/debug output
func SetVerboseMode(verbose bool) {
	VerboseMode = verbose
}

// SetLogFile mirrors log output to a rotating file in addition to stderr.
// An empty path leaves logging on stderr only.
func SetLogFile(path string) {
	if path == "" {
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    25, // megabytes
		MaxAge:     7,  // days
		MaxBackups: 5,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
}

// Error messages
const (
	ErrFailedToReadImage     = "failed to read disc image"
	ErrFailedToParseImage    = "failed to parse disc image"
	ErrFailedToWriteImage    = "failed to write disc image"
	ErrFailedToRebuildImage  = "failed to rebuild disc image"
	ErrFailedToReadManifest  = "failed to read patch manifest"
	ErrFailedToParseManifest = "failed to parse patch manifest"
	ErrFailedToReadPayload   = "failed to read payload file"
	ErrFailedToApplyManifest = "failed to apply patch manifest"
	ErrFailedToExtractFile   = "failed to extract file"
	ErrFailedToReadDOL       = "failed to read DOL file"
	ErrFailedToParseDOL      = "failed to parse DOL file"
)

// Info messages
const (
	InfoImageParsed     = "Disc image parsed: %d bytes, table size 0x%X"
	InfoFileExtracted   = "Extracted %s (%d bytes)"
	InfoFilePut         = "Put %s (%d bytes)"
	InfoFileRemoved     = "Removed %s"
	InfoImageRebuilt    = "Rebuilt image: %d bytes"
	InfoManifestApplied = "Applied manifest: %d files put, %d removed"
	InfoDumpComplete    = "Extracted %d files to %s"
)

// Debug messages
const (
	DebugHeaderFields   = "Header: dol=0x%X fst=0x%X fstSize=0x%X"
	DebugSystemBlob     = "System blob %s: offset=0x%X size=0x%X"
	DebugFileEntry      = "%04d  0x%08X  %8d  %s"
	DebugDOLTailNonZero = "DOL header tail has non-zero bytes at 0x%X"
	DebugOffsetAssigned = "Assigned 0x%X (%d bytes) to %s"
	DebugOffsetReused   = "Reused original offset 0x%X for %s"
)

// LogInfo logs an informational message
func LogInfo(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[INFO] "+message, args...)
	} else {
		log.Printf("[INFO] %s", message)
	}
}

// LogWarn logs a warning message
func LogWarn(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[WARN] "+message, args...)
	} else {
		log.Printf("[WARN] %s", message)
	}
}

// LogError logs an error message
func LogError(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[ERROR] "+message, args...)
	} else {
		log.Printf("[ERROR] %s", message)
	}
}

// LogDebug logs a debug message (only if VerboseMode is enabled)
func LogDebug(message string, args ...interface{}) {
	if !VerboseMode {
		return
	}
	if len(args) > 0 {
		log.Printf("[DEBUG] "+message, args...)
	} else {
		log.Printf("[DEBUG] %s", message)
	}
}

// FormatError creates a formatted error with additional context
func FormatError(baseMessage string, details interface{}) error {
	if err, ok := details.(error); ok {
		return fmt.Errorf("%s: %w", baseMessage, err)
	}
	return fmt.Errorf("%s: %v", baseMessage, details)
}
