package parsers

import (
	"io"

	"github.com/username/optifolio/src/models"
)

// Parser turns one raw brokerage export into normalized option and stock
// transactions. Each parser owns the classification quirks of its source;
// rows it cannot classify are dropped, not surfaced as errors.
type Parser interface {
	Parse(file io.Reader) (*models.ActivityBatch, error)
}
