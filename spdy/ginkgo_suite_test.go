package spdy

import (
	"testing"

	"github.com/chensheng12330/iSPDY/lib/testutil"
)

func TestSpdySpecs(t *testing.T) {
	testutil.RunSuite(t, "spdy")
}
