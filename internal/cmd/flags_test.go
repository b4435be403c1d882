package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strayline/corral/internal/config"
)

var flagParseErrorTests = []struct {
	in     string
	flag   string
	reason string
}{
	{
		"unknown flag: --nope",
		"--nope",
		"Flag %s is missing.",
	},
	{
		"flag needs an argument: --continue",
		"--continue",
		"Flag %s needs an argument.",
	},
	{
		"flag needs an argument: 'c' in -c",
		"-c",
		"Flag %s needs an argument.",
	},
	{
		`invalid argument "sdfjasdl" for "--max-tokens" flag: strconv.ParseInt: parsing "sdfjasdl": invalid syntax`,
		"--max-tokens",
		"Flag %s have an invalid argument.",
	},
	{
		`invalid argument "nope" for "-r, --raw" flag: strconv.ParseBool: parsing "nope": invalid syntax`,
		"-r, --raw",
		"Flag %s have an invalid argument.",
	},
}

func TestFlagParseError(t *testing.T) {
	for _, tf := range flagParseErrorTests {
		t.Run(tf.in, func(t *testing.T) {
			err := newFlagParseError(errors.New(tf.in))
			require.Equal(t, tf.flag, err.Flag())
			require.Equal(t, tf.reason, err.ReasonFormat())
			require.Equal(t, tf.in, err.Error())
		})
	}
}

func TestRootFlags(t *testing.T) {
	t.Run("model and api can be parsed", func(t *testing.T) {
		cmd := NewRootCmd(BuildInfo{}, config.Config{}, nil)

		err := cmd.ParseFlags([]string{"-a", "openai", "-m", "gpt-4o"})
		require.NoError(t, err)
		require.Equal(t, "openai", cmd.Flag("api").Value.String())
		require.Equal(t, "gpt-4o", cmd.Flag("model").Value.String())
	})

	t.Run("continue flags are mutually exclusive", func(t *testing.T) {
		cmd := NewRootCmd(BuildInfo{}, config.Config{}, nil)
		cmd.SetArgs([]string{"-c", "abc", "-C", "hello"})

		err := cmd.Execute()
		require.Error(t, err)
	})

	t.Run("max-iterations accepts a value", func(t *testing.T) {
		cmd := NewRootCmd(BuildInfo{}, config.Config{}, nil)

		err := cmd.ParseFlags([]string{"--max-iterations", "3"})
		require.NoError(t, err)
		require.Equal(t, "3", cmd.Flag("max-iterations").Value.String())
	})
}

func TestFirstLine(t *testing.T) {
	require.Equal(t, "hello", firstLine("hello\nworld"))
	require.Equal(t, "hello", firstLine("  hello  \n"))
	long := "this prompt keeps going and going and going and going and going and going and going and going"
	require.LessOrEqual(t, len(firstLine(long)), 80)
}
