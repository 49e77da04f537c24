package detector

import "fmt"

// ParseStrategy resolves a configuration string to a detection strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "metadata":
		return MetadataBased, nil
	case "contour", "":
		return ContourHybrid, nil
	default:
		return "", fmt.Errorf("unknown detection strategy: %s", name)
	}
}
