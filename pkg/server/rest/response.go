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

package rest

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standard error response.
type ErrorResponse struct {
	Error string `json:"error" example:"error message"`
	Code  int    `json:"code" example:"500"`
}

// PlotResponse is the successful response of the plot endpoint.
type PlotResponse struct {
	Message string `json:"message" example:"Plot generated successfully"`
	PlotURL string `json:"plotUrl"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status" example:"healthy"`
	Version string `json:"version,omitempty"`
}

// RespondWithError sends a structured error response. The HTTP trigger is
// the only synchronous caller-facing path; it always gets structured JSON,
// never an unhandled fault.
func RespondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{Error: message, Code: code})
}
