package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Model file name constants.
const (
	// DetectionEAST is the EAST text detector exported to ONNX.
	DetectionEAST = "frozen_east_text_detection.onnx"

	// DictionaryEnglishSpelling is the English word-frequency list.
	DictionaryEnglishSpelling = "en-spelling.txt"
)

// Model type categories for organized directory structure.
const (
	TypeDetection    = "detection"
	TypeDictionaries = "dictionaries"
)

// Default models directory.
const DefaultModelsDir = "models"

// Environment variable for models directory override.
const EnvModelsDir = "COMICOCR_MODELS_DIR"

// findProjectRoot finds the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.New("could not find project root (go.mod not found)")
}

// ModelInfo contains metadata about a model file.
type ModelInfo struct {
	Name        string
	Type        string
	Description string
	Filename    string
}

// GetModelsDir returns the models directory path from various sources
// Priority: 1. Explicit modelsDir parameter, 2. Environment variable, 3. Project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}

	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}

	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}

	return DefaultModelsDir
}

// ResolveModelPath resolves a model filename to its full path. The organized
// layout <dir>/<type>/<file> is preferred; a flat <dir>/<file> is used when
// only that exists. When neither exists the organized path is returned so
// error messages point at the expected location.
func ResolveModelPath(modelsDir, modelType, filename string) string {
	baseDir := GetModelsDir(modelsDir)

	if modelType == "" {
		return filepath.Join(baseDir, filename)
	}

	organizedPath := filepath.Join(baseDir, modelType, filename)
	if _, err := os.Stat(organizedPath); err == nil {
		return organizedPath
	}

	flatPath := filepath.Join(baseDir, filename)
	if _, err := os.Stat(flatPath); err == nil {
		return flatPath
	}
	return organizedPath
}

// GetDetectionModelPath returns the path of the EAST detection model.
func GetDetectionModelPath(modelsDir string) string {
	return ResolveModelPath(modelsDir, TypeDetection, DetectionEAST)
}

// GetDictionaryPath returns the path for a dictionary file.
func GetDictionaryPath(modelsDir, filename string) string {
	return ResolveModelPath(modelsDir, TypeDictionaries, filename)
}

// GetSpellingDictionaryPath returns the path of the default spelling list.
func GetSpellingDictionaryPath(modelsDir string) string {
	return GetDictionaryPath(modelsDir, DictionaryEnglishSpelling)
}

// ValidateModelExists checks if a model file exists at the given path.
func ValidateModelExists(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	return nil
}

// ListAvailableModels returns information about the model files the scanner uses.
func ListAvailableModels() []ModelInfo {
	return []ModelInfo{
		{
			Name:        "east-detection",
			Type:        TypeDetection,
			Description: "EAST dense text detector",
			Filename:    DetectionEAST,
		},
		{
			Name:        "en-spelling",
			Type:        TypeDictionaries,
			Description: "English word-frequency list for spelling correction",
			Filename:    DictionaryEnglishSpelling,
		},
	}
}
