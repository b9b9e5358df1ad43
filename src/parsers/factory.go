package parsers

import (
	"fmt"

	"github.com/username/optifolio/src/parsers/activity"
)

func GetParser(source string) (Parser, error) {
	switch source {
	case "activity":
		return activity.NewParser(), nil
	default:
		return nil, fmt.Errorf("no parser available for source: %s", source)
	}
}
