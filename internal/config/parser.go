package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	ensureerrors "github.com/ensureops/ensure/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParseVMDeclaration loads a VM declaration file from disk, validates it,
// and returns the resulting model.
func ParseVMDeclaration(path string) (*VMDeclaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ensureerrors.NewParseError(path, 0, err)
	}

	var decl VMDeclaration
	if err := yaml.Unmarshal(data, &decl); err != nil {
		return nil, ensureerrors.NewParseError(path, extractLine(err), err)
	}

	if err := ValidateVM(&decl); err != nil {
		return nil, err
	}

	return &decl, nil
}

// ParseMonitorDeclaration loads a monitor declaration file from disk,
// validates it, and returns the resulting model.
func ParseMonitorDeclaration(path string) (*MonitorDeclaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ensureerrors.NewParseError(path, 0, err)
	}

	var decl MonitorDeclaration
	if err := yaml.Unmarshal(data, &decl); err != nil {
		return nil, ensureerrors.NewParseError(path, extractLine(err), err)
	}

	if err := ValidateMonitor(&decl); err != nil {
		return nil, err
	}

	return &decl, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
