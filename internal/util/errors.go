package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in PDF")
	ErrNotPDF            = errors.New("response is not a PDF")
	ErrPDFTooLarge       = errors.New("PDF exceeds download size limit")
)
