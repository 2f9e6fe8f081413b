package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test target mimicking the config structs the option pattern serves.
type chainConfig struct {
	Walkers  int
	Label    string
	Record   bool
	LastCall string
}

func (cc *chainConfig) SetWalkers(n int) error {
	if n < 1 {
		return errors.New("walker count must be positive")
	}
	cc.Walkers = n
	cc.LastCall = "SetWalkers"

	return nil
}

func (cc *chainConfig) SetLabel(label string) {
	cc.Label = label
	cc.LastCall = "SetLabel"
}

func (cc *chainConfig) SetRecord(record bool) {
	cc.Record = record
	cc.LastCall = "SetRecord"
}

func TestOption_New(t *testing.T) {
	config := &chainConfig{}

	t.Run("creates option that can return error", func(t *testing.T) {
		opt := New(func(c *chainConfig) error {
			return c.SetWalkers(24)
		})

		err := opt.apply(config)
		require.NoError(t, err)
		require.Equal(t, 24, config.Walkers)
		require.Equal(t, "SetWalkers", config.LastCall)
	})

	t.Run("propagates errors from option function", func(t *testing.T) {
		opt := New(func(c *chainConfig) error {
			return c.SetWalkers(0) // This should return an error
		})

		err := opt.apply(config)
		require.Error(t, err)
		require.Contains(t, err.Error(), "walker count must be positive")
	})
}

func TestOption_NoError(t *testing.T) {
	config := &chainConfig{}

	t.Run("creates option from function without error", func(t *testing.T) {
		opt := NoError(func(c *chainConfig) {
			c.SetLabel("samples")
		})

		err := opt.apply(config)
		require.NoError(t, err)
		require.Equal(t, "samples", config.Label)
		require.Equal(t, "SetLabel", config.LastCall)
	})

	t.Run("works with boolean setter", func(t *testing.T) {
		opt := NoError(func(c *chainConfig) {
			c.SetRecord(true)
		})

		err := opt.apply(config)
		require.NoError(t, err)
		require.True(t, config.Record)
		require.Equal(t, "SetRecord", config.LastCall)
	})
}

func TestOption_Apply(t *testing.T) {
	config := &chainConfig{}

	t.Run("applies multiple options in order", func(t *testing.T) {
		opts := []Option[*chainConfig]{
			New(func(c *chainConfig) error { return c.SetWalkers(10) }),
			NoError(func(c *chainConfig) { c.SetLabel("samples") }),
			NoError(func(c *chainConfig) { c.SetRecord(true) }),
		}

		err := Apply(config, opts...)
		require.NoError(t, err)
		require.Equal(t, 10, config.Walkers)
		require.Equal(t, "samples", config.Label)
		require.True(t, config.Record)
		require.Equal(t, "SetRecord", config.LastCall) // Last option should be the last call
	})

	t.Run("stops at first error and returns it", func(t *testing.T) {
		config := &chainConfig{} // Reset config

		opts := []Option[*chainConfig]{
			New(func(c *chainConfig) error { return c.SetWalkers(5) }), // Should succeed
			New(func(c *chainConfig) error { return c.SetWalkers(0) }), // Should fail
			NoError(func(c *chainConfig) { c.SetLabel("should not be set") }),
		}

		err := Apply(config, opts...)
		require.Error(t, err)
		require.Contains(t, err.Error(), "walker count must be positive")
		require.Equal(t, 5, config.Walkers)             // First option applied
		require.Equal(t, "", config.Label)              // Third option should not have been applied
		require.Equal(t, "SetWalkers", config.LastCall) // Should be from first option
	})

	t.Run("works with empty options slice", func(t *testing.T) {
		config := &chainConfig{}
		err := Apply(config)
		require.NoError(t, err)
		// Config should remain unchanged
		require.Equal(t, 0, config.Walkers)
		require.Equal(t, "", config.Label)
		require.False(t, config.Record)
	})
}

func TestOption_Integration(t *testing.T) {
	config := &chainConfig{}

	// Create helper functions that return options (similar to WithXxx patterns)
	withWalkers := func(n int) Option[*chainConfig] {
		return New(func(c *chainConfig) error {
			return c.SetWalkers(n)
		})
	}

	withLabel := func(label string) Option[*chainConfig] {
		return NoError(func(c *chainConfig) {
			c.SetLabel(label)
		})
	}

	withRecord := func(record bool) Option[*chainConfig] {
		return NoError(func(c *chainConfig) {
			c.SetRecord(record)
		})
	}

	t.Run("works with helper functions", func(t *testing.T) {
		err := Apply(config,
			withWalkers(100),
			withLabel("probabilities"),
			withRecord(true),
		)

		require.NoError(t, err)
		require.Equal(t, 100, config.Walkers)
		require.Equal(t, "probabilities", config.Label)
		require.True(t, config.Record)
	})
}

// Test with different types to ensure generics work properly
type simpleTarget struct {
	Data string
}

func TestOption_GenericsWithDifferentTypes(t *testing.T) {
	t.Run("works with simple struct", func(t *testing.T) {
		s := &simpleTarget{}
		opt := NoError(func(st *simpleTarget) {
			st.Data = "generic test"
		})

		err := opt.apply(s)
		require.NoError(t, err)
		require.Equal(t, "generic test", s.Data)
	})

	t.Run("works with primitive types", func(t *testing.T) {
		var num int
		opt := NoError(func(n *int) {
			*n = 42
		})

		err := opt.apply(&num)
		require.NoError(t, err)
		require.Equal(t, 42, num)
	})
}
