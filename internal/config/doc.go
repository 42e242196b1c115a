// Package config provides configuration structures and utilities for cannibalscan.
// It defines where the analysis backend lives, how analyses are requested,
// the default report filters and where exports and history are written.
package config
