// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-bucketwatch.
//
// go-bucketwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package plot renders the size history as a small self-contained SVG
// chart: the recent size series as a line, the historical maximum as a
// dashed rule.
package plot

import (
	"bytes"
	"fmt"

	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
)

const (
	width   = 800
	height  = 480
	margin  = 60
	plotW   = width - 2*margin
	plotH   = height - 2*margin
	svgMIME = "image/svg+xml"
)

// ContentType is the MIME type of the rendered artifact.
const ContentType = svgMIME

// Render produces an SVG chart of the given records. maxSize, when
// positive, is drawn as a dashed horizontal rule. An empty record set
// renders an empty chart, not an error.
func Render(records []*common.SizeRecord, maxSize int64) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`, width, height)
	buf.WriteString(`<rect width="100%" height="100%" fill="white"/>`)
	fmt.Fprintf(&buf, `<text x="%d" y="30" font-size="18" text-anchor="middle">Bucket Size Over Time</text>`, width/2)

	// Scale to the larger of the series peak and the historical max.
	top := maxSize
	for _, rec := range records {
		if rec.TotalSize > top {
			top = rec.TotalSize
		}
	}
	if top == 0 {
		top = 1
	}

	// Axes
	fmt.Fprintf(&buf, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="black"/>`, margin, height-margin, width-margin, height-margin)
	fmt.Fprintf(&buf, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="black"/>`, margin, margin, margin, height-margin)

	if maxSize > 0 {
		y := yFor(maxSize, top)
		fmt.Fprintf(&buf, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="red" stroke-dasharray="6,4"/>`, margin, y, width-margin, y)
		fmt.Fprintf(&buf, `<text x="%d" y="%d" font-size="12" fill="red">max %d bytes</text>`, margin+4, y-6, maxSize)
	}

	if len(records) > 0 {
		var points bytes.Buffer
		for i, rec := range records {
			x := margin
			if len(records) > 1 {
				x = margin + i*plotW/(len(records)-1)
			}
			fmt.Fprintf(&points, "%d,%d ", x, yFor(rec.TotalSize, top))
		}
		fmt.Fprintf(&buf, `<polyline points="%s" fill="none" stroke="blue" stroke-width="2"/>`, bytes.TrimSpace(points.Bytes()))

		first, last := records[0], records[len(records)-1]
		fmt.Fprintf(&buf, `<text x="%d" y="%d" font-size="10" text-anchor="start">%s</text>`, margin, height-margin+20, first.Timestamp)
		fmt.Fprintf(&buf, `<text x="%d" y="%d" font-size="10" text-anchor="end">%s</text>`, width-margin, height-margin+20, last.Timestamp)
	}

	fmt.Fprintf(&buf, `<text x="20" y="%d" font-size="12" transform="rotate(-90 20 %d)">Size (bytes)</text>`, height/2, height/2)
	buf.WriteString(`</svg>`)
	return buf.Bytes()
}

func yFor(value, top int64) int {
	return height - margin - int(int64(plotH)*value/top)
}
