// Package register blank-imports every venue decoder so its init()
// registers with the dispatch table in internal/venue. Importing this
// package (rather than each venue package individually) is the one place
// that needs to know the full venue list.
package register

import (
	_ "github.com/aerofoil/solmev/internal/venue/meteoradlmm"
	_ "github.com/aerofoil/solmev/internal/venue/pump"
	_ "github.com/aerofoil/solmev/internal/venue/raydiumamm"
	_ "github.com/aerofoil/solmev/internal/venue/raydiumcpmm"
	_ "github.com/aerofoil/solmev/internal/venue/raydiumclmm"
)
