package pipeline

import (
	"github.com/platinummonkey/scrutable/internal/layout"
	"github.com/platinummonkey/scrutable/internal/ocr"
)

// PageWords is one page of the words artifact
type PageWords struct {
	// PageNum is the 1-based page number
	PageNum int `json:"page_num"`

	// Width and Height are the rendered page dimensions in pixels
	Width  int `json:"width"`
	Height int `json:"height"`

	// Texts are the normalized words; empty for pages whose engine failed
	Texts []ocr.Word `json:"texts"`
}

// WordsDocument is the <stem>_words.json artifact
type WordsDocument struct {
	// Document is the source PDF file name
	Document string `json:"document"`

	// DPI is the rasterization resolution the coordinates are expressed in
	DPI int `json:"dpi"`

	// Pages is ordered by page_num ascending, 1..N
	Pages []PageWords `json:"pages"`
}

// PageBlocks is one page of the blocks artifact
type PageBlocks struct {
	// PageNum is the 1-based page number
	PageNum int `json:"page_num"`

	// Blocks are the merged layout blocks for the page
	Blocks []layout.Block `json:"blocks"`
}

// BlocksDocument is the <stem>_blocks.json artifact
type BlocksDocument struct {
	// Document is the source PDF file name
	Document string `json:"document"`

	// DPI is the rasterization resolution the coordinates are expressed in
	DPI int `json:"dpi"`

	// Pages is ordered by page_num ascending, 1..N
	Pages []PageBlocks `json:"pages"`
}
