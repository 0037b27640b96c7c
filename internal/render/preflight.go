package render

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Info describes a PDF that passed preflight.
type Info struct {
	PageCount int
	Size      int64
}

// Preflight verifies that data parses as a PDF with at least one page. It
// keeps obviously broken uploads from burning extraction attempts.
func Preflight(data []byte) (info *Info, err error) {
	// The pdf parser panics on some malformed files; turn that into a
	// preflight failure instead of taking the process down.
	defer func() {
		if r := recover(); r != nil {
			info = nil
			err = &PreflightError{Message: fmt.Sprintf("malformed PDF: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &PreflightError{Message: "not a readable PDF", Cause: err}
	}

	n := reader.NumPage()
	if n <= 0 {
		return nil, &PreflightError{Message: "PDF has no pages"}
	}

	return &Info{PageCount: n, Size: int64(len(data))}, nil
}
