package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type api interface{ Report() }

type impl struct{}

func (*impl) Report() {}

func TestNotNil(t *testing.T) {
	require.Panics(t, func() { NotNil(nil) })

	var typed *impl
	var iface api = typed
	require.Panics(t, func() { NotNil(iface) })
	require.Panics(t, func() { NotNil(map[string]int(nil)) })

	require.NotPanics(t, func() { NotNil(&impl{}) })
	require.NotPanics(t, func() { NotNil(impl{}) })
	require.NotPanics(t, func() { NotNil(0) })
}
