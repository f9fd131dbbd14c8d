// Package classification renderboard.
//
// Documentation for the renderboard plugin's HTTP API.

// Schemes: http
// BasePath: /data/plugin/renderboard
// Version: 1.0.0
//
// Consumes:
// - application/json
// Produces:
// - application/json
// - application/javascript

// swagger:meta
package docs
