package vw

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vwlab/ml"
)

// echoScript stands in for vw: labelled lines are answered with their label,
// unlabelled ones with 0.25. Every argument and input line is recorded, and the
// final regressor is written at end of input.
const echoScript = `#!/bin/sh
printf '%s\n' "$@" > "$FAKE_VW_ARGS"
model=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "--final_regressor" ]; then model="$arg"; fi
  prev="$arg"
done
while IFS= read -r line; do
  printf '%s\n' "$line" >> "$FAKE_VW_INPUT"
  case "$line" in
    "|"*) echo "0.25" ;;
    *) echo "${line%% *}" ;;
  esac
done
if [ -n "$model" ]; then : > "$model"; fi
`

// slowScript takes a second over its first reply, then answers at once.
const slowScript = `#!/bin/sh
first=1
while IFS= read -r line; do
  if [ "$first" = 1 ]; then
    first=0
    sleep 1
    echo "0.9"
  else
    echo "0.25"
  fi
done
`

const silentScript = `#!/bin/sh
cat > /dev/null
`

type fakeVW struct {
	binary string
	args   string
	input  string
}

func installFakeVW(t *testing.T, script string) fakeVW {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake vw needs a POSIX shell")
	}
	dir := t.TempDir()
	fake := fakeVW{
		binary: filepath.Join(dir, "vw"),
		args:   filepath.Join(dir, "args"),
		input:  filepath.Join(dir, "input"),
	}
	require.NoError(t, os.WriteFile(fake.binary, []byte(script), 0o755))
	t.Setenv("FAKE_VW_ARGS", fake.args)
	t.Setenv("FAKE_VW_INPUT", fake.input)
	return fake
}

func documentExample(t *testing.T, label *float64) ml.Example {
	t.Helper()
	schema, err := ml.DocumentSchema(nil, ml.RawCount)
	require.NoError(t, err)
	example, err := schema.Assemble(ml.Document{Author: "Broyden", Text: "Lorem ipsum", Year: 1999}, label)
	require.NoError(t, err)
	return example
}

func TestSessionLearnAndPredict(t *testing.T) {
	fake := installFakeVW(t, echoScript)
	modelPath := filepath.Join(t.TempDir(), "models", "test1.model")
	ctx := context.Background()

	session, err := Open(ctx, Options{Binary: fake.binary, ModelPath: modelPath}, nil)
	require.NoError(t, err)

	label := 1.0
	require.NoError(t, session.Learn(ctx, documentExample(t, &label)))

	prediction, err := session.Predict(ctx, documentExample(t, &label))
	require.NoError(t, err)
	assert.Equal(t, 0.25, prediction)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())

	args, err := os.ReadFile(fake.args)
	require.NoError(t, err)
	assert.Equal(t, []string{"--quiet", "--predictions", "/dev/stdout", "--final_regressor", modelPath},
		strings.Fields(string(args)))

	input, err := os.ReadFile(fake.input)
	require.NoError(t, err)
	assert.Equal(t,
		"1 |nns0 Author=Broyden Year:1999 |nns1 IPSUM LOREM\n|nns0 Author=Broyden Year:1999 |nns1 IPSUM LOREM\n",
		string(input))

	_, err = os.Stat(modelPath)
	assert.NoError(t, err)
	assert.Equal(t, modelPath, session.ModelPath())
}

func TestSessionLearnRequiresLabel(t *testing.T) {
	fake := installFakeVW(t, echoScript)
	session, err := Open(context.Background(), Options{Binary: fake.binary}, nil)
	require.NoError(t, err)
	defer session.Close()

	err = session.Learn(context.Background(), documentExample(t, nil))
	assert.ErrorIs(t, err, ml.ErrInvalidInput)
}

func TestSessionClosed(t *testing.T) {
	fake := installFakeVW(t, echoScript)
	session, err := Open(context.Background(), Options{Binary: fake.binary}, nil)
	require.NoError(t, err)
	require.NoError(t, session.Close())

	_, err = session.Predict(context.Background(), documentExample(t, nil))
	assert.ErrorIs(t, err, ml.ErrClosed)
}

func TestSessionSkipsAbandonedReply(t *testing.T) {
	fake := installFakeVW(t, slowScript)
	session, err := Open(context.Background(), Options{Binary: fake.binary}, nil)
	require.NoError(t, err)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = session.Predict(ctx, documentExample(t, nil))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The late 0.9 belongs to the cancelled call and must not be handed out here.
	prediction, err := session.Predict(context.Background(), documentExample(t, nil))
	require.NoError(t, err)
	assert.Equal(t, 0.25, prediction)

	prediction, err = session.Predict(context.Background(), documentExample(t, nil))
	require.NoError(t, err)
	assert.Equal(t, 0.25, prediction)
}

func TestSessionCancelledWithoutReply(t *testing.T) {
	fake := installFakeVW(t, silentScript)
	session, err := Open(context.Background(), Options{Binary: fake.binary}, nil)
	require.NoError(t, err)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = session.Predict(ctx, documentExample(t, nil))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenUnwritableModel(t *testing.T) {
	notADir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0o644))

	_, err := Open(context.Background(), Options{Binary: "/nonexistent/vw", ModelPath: filepath.Join(notADir, "m.model")}, nil)
	assert.ErrorIs(t, err, ml.ErrResource)
}

func TestOpenFailureLeavesNoModel(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	modelPath := filepath.Join(dir, "m.model")

	_, err := Open(context.Background(), Options{Binary: filepath.Join(t.TempDir(), "no-vw"), ModelPath: modelPath}, nil)
	require.Error(t, err)

	_, err = os.Stat(modelPath)
	assert.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenMissingInitialModel(t *testing.T) {
	_, err := Open(context.Background(), Options{Binary: "/nonexistent/vw", InitialModel: filepath.Join(t.TempDir(), "missing.model")}, nil)
	assert.ErrorIs(t, err, ml.ErrResource)
}

func TestOpenMissingBinary(t *testing.T) {
	_, err := Open(context.Background(), Options{Binary: filepath.Join(t.TempDir(), "no-vw")}, nil)
	assert.Error(t, err)
}

func TestOpenThroughRegistry(t *testing.T) {
	fake := installFakeVW(t, echoScript)
	learner, err := ml.OpenLearner(context.Background(), "vw", ml.LearnerOptions{Binary: fake.binary, TestOnly: true})
	require.NoError(t, err)
	require.NoError(t, learner.Close())

	args, err := os.ReadFile(fake.args)
	require.NoError(t, err)
	assert.Contains(t, string(args), "--testonly")
}
