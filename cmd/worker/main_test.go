package main

import (
	"testing"

	"github.com/akademi/egitim-portal/internal/app"
	_ "github.com/akademi/egitim-portal/testing"
)

func TestMainReturnsInTestMode(t *testing.T) {
	app.RefreshTestMode()
	if !app.InTestMode() {
		t.Fatal("expected test mode")
	}
	main()
}
