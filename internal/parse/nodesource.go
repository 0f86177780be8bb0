package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxParameters caps the parameter list mined from one node source file.
const MaxParameters = 20

// NodeInfo is the field set mined from one TypeScript node source file.
// All fields are best-effort: absent patterns leave zero values, Version
// defaults to 1.
type NodeInfo struct {
	DisplayName string
	Description string
	Version     float64
	Category    string
	Credentials []string
	Parameters  []Parameter
}

// Parameter is one mined name/type pair.
type Parameter struct {
	Name string
	Type string
}

var (
	displayNameRe    = regexp.MustCompile(`displayName:\s*['"]([^'"]+)['"]`)
	descriptionRe    = regexp.MustCompile(`description:\s*['"]([^'"]+)['"]`)
	defaultVersionRe = regexp.MustCompile(`defaultVersion:\s*([0-9]+(?:\.[0-9]+)?)`)
	versionListRe    = regexp.MustCompile(`version:\s*\[([^\]]+)\]`)
	versionScalarRe  = regexp.MustCompile(`version:\s*([0-9]+(?:\.[0-9]+)?)`)
	groupRe          = regexp.MustCompile(`group:\s*\[\s*['"]([^'"]+)['"]`)
	credentialsRe    = regexp.MustCompile(`(?s)credentials:\s*\[(.*?)\]`)
	credentialNameRe = regexp.MustCompile(`name:\s*['"]([A-Za-z0-9_]+)['"]`)
	parameterRe      = regexp.MustCompile(`name:\s*['"]([A-Za-z0-9_]+)['"],\s*\n?\s*type:\s*['"]([A-Za-z0-9_.]+)['"]`)
	numberRe         = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
)

// credentialMarkers are the suffix/keyword heuristics identifying
// credential type names inside a mined credentials block.
var credentialMarkers = []string{"api", "oauth", "auth", "token", "credential"}

// NodeSource mines display metadata from raw TypeScript node source text.
// It never fails; on a text that matches nothing it returns a NodeInfo
// with only Version populated (1).
func NodeSource(raw string) NodeInfo {
	info := NodeInfo{Version: 1}

	if m := displayNameRe.FindStringSubmatch(raw); m != nil {
		info.DisplayName = m[1]
	}
	if m := descriptionRe.FindStringSubmatch(raw); m != nil {
		info.Description = m[1]
	}
	if m := groupRe.FindStringSubmatch(raw); m != nil {
		info.Category = m[1]
	}

	info.Version = mineVersion(raw)
	info.Credentials = mineCredentials(raw)
	info.Parameters = mineParameters(raw)

	return info
}

// mineVersion prefers an explicit defaultVersion, then the maximum of an
// enumerated version list, then a scalar version, then 1.
func mineVersion(raw string) float64 {
	if m := defaultVersionRe.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v
		}
	}

	if m := versionListRe.FindStringSubmatch(raw); m != nil {
		maxV := 0.0
		for _, num := range numberRe.FindAllString(m[1], -1) {
			if v, err := strconv.ParseFloat(num, 64); err == nil && v > maxV {
				maxV = v
			}
		}
		if maxV > 0 {
			return maxV
		}
	}

	if m := versionScalarRe.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v
		}
	}

	return 1
}

// mineCredentials extracts credential type names from the credentials
// block, keeping only names that look like credential types per the
// suffix/keyword heuristics.
func mineCredentials(raw string) []string {
	block := credentialsRe.FindStringSubmatch(raw)
	if block == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var creds []string
	for _, m := range credentialNameRe.FindAllStringSubmatch(block[1], -1) {
		name := m[1]
		if !looksLikeCredential(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		creds = append(creds, name)
	}
	return creds
}

func looksLikeCredential(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range credentialMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// mineParameters extracts name/type pairs from property declarations,
// capped at MaxParameters. The displayName/description pseudo-properties
// matched by the loose regex are filtered out.
func mineParameters(raw string) []Parameter {
	var params []Parameter
	seen := make(map[string]struct{})
	for _, m := range parameterRe.FindAllStringSubmatch(raw, -1) {
		name := m[1]
		if name == "displayName" || name == "description" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		params = append(params, Parameter{Name: name, Type: m[2]})
		if len(params) == MaxParameters {
			break
		}
	}
	return params
}
