package middleware

import (
	"fmt"
	"strings"
)

// Input validation and sanitization utilities

// ValidateRunType checks the run type query/body value
func ValidateRunType(t string) error {
	switch strings.ToLower(t) {
	case "scan", "inventory":
		return nil
	}
	return fmt.Errorf("invalid run type: %s (allowed: scan, inventory)", t)
}

// ValidateLogLevel checks the analyzer log level flag value
func ValidateLogLevel(level string) error {
	if level == "" {
		return nil // optional, defaults apply
	}
	switch strings.ToUpper(level) {
	case "DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL":
		return nil
	}
	return fmt.Errorf("invalid log level: %s", level)
}

// ValidateCallDepth bounds the analyzer call depth flag
func ValidateCallDepth(depth int) error {
	if depth < 0 || depth > 10 {
		return fmt.Errorf("invalid call depth: %d (allowed: 0-10)", depth)
	}
	return nil
}

// ValidateSubgraphDepth bounds the neighborhood query depth
func ValidateSubgraphDepth(depth int) error {
	if depth < 1 || depth > 5 {
		return fmt.Errorf("invalid subgraph depth: %d (allowed: 1-5)", depth)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
