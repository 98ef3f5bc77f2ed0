package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

const maxSequenceBytes = 4 << 20 // keep pasted FASTA payloads bounded

// ValidateSequence checks a pasted FASTA sequence before it is queued.
// Header lines pass through as-is; sequence lines must be plain symbols.
func ValidateSequence(sequence string) error {
	if strings.TrimSpace(sequence) == "" {
		return fmt.Errorf("sequence cannot be empty")
	}
	if len(sequence) > maxSequenceBytes {
		return fmt.Errorf("sequence exceeds %d bytes", maxSequenceBytes)
	}

	for _, line := range strings.Split(sequence, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ">") {
			continue
		}
		for _, r := range line {
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || r == '*' || r == '-' {
				continue
			}
			return fmt.Errorf("invalid character %q in sequence data", r)
		}
	}
	return nil
}

// ValidateDomainList validates a comma separated list of keyserver/hdb hosts
func ValidateDomainList(domains string) error {
	if domains == "" {
		return nil // defaults apply
	}

	pattern := regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*(:\d{1,5})?$`)
	for _, d := range strings.Split(domains, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if !pattern.MatchString(d) {
			return fmt.Errorf("invalid domain: %s", d)
		}
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

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	pattern := `^[a-zA-Z0-9_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, tenant)
	if !matched {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}

	return nil
}

// ValidateRunID validates run ID format
func ValidateRunID(runID string) error {
	if runID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}

	// UUID with the -screen suffix
	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}-screen$`
	matched, _ := regexp.MatchString(pattern, runID)
	if !matched {
		return fmt.Errorf("invalid run ID format")
	}

	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
