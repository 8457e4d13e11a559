package hopcrypt

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine orchestrates the encrypt/decrypt pipelines. An Engine
// constructed with NewEngine holds no mutable state of its own; one
// Engine value may be shared across goroutines, each pipeline
// invocation owning its own temp-file guard and key material.
type Engine struct {
	log *logrus.Logger
}

// NewEngine returns an Engine that logs through log. A nil log falls
// back to logrus's standard logger, so logging remains ambient
// infrastructure rather than a required caller dependency.
func NewEngine(log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{log: log}
}

// deriveKeysAsync runs DeriveKeys on a dedicated goroutine and waits for
// its result. Argon2id is not preemptible, so a cancelled ctx is reported
// only once the derivation has finished. Archiving and gzip remain
// inline since each is already the caller's whole unit of work for that
// stage.
func deriveKeysAsync(ctx context.Context, password, salt []byte, params Argon2Params) (*DerivedKeys, error) {
	type result struct {
		keys *DerivedKeys
		err  error
	}
	done := make(chan result, 1)
	go func() {
		keys, err := DeriveKeys(password, salt, params)
		done <- result{keys, err}
	}()

	select {
	case <-ctx.Done():
		// Wait for the goroutine above to finish and wipe any keys it
		// produced, so no key material outlives a cancelled call.
		r := <-done
		if r.err == nil {
			r.keys.Wipe()
		}
		return nil, newErr(KindKeyDerivation, "cancelled", ctx.Err())
	case r := <-done:
		return r.keys, r.err
	}
}

// stagingPath builds a unique intermediate file path under dir for the
// given purpose tag.
func stagingPath(dir, tag string) (string, error) {
	f, err := os.CreateTemp(dir, "hoplixi-"+tag+"-*")
	if err != nil {
		return "", newErr(KindIO, "creating staging file", err)
	}
	path := f.Name()
	f.Close()
	return path, nil
}

// publishAtomically renames stagingPath to finalPath, readers never
// observing a partial file. If the rename fails because the two paths
// are on different devices, it falls back to copy-then-unlink.
func publishAtomically(stagingPath, finalPath string) error {
	if err := os.Rename(stagingPath, finalPath); err == nil {
		return nil
	}

	in, err := os.Open(stagingPath)
	if err != nil {
		return newErr(KindIO, "reopening staging file for cross-device publish", err)
	}
	defer in.Close()

	tmp := finalPath + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return newErr(KindIO, "creating cross-device publish target", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return newErr(KindIO, "copying staging file across devices", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return newErr(KindIO, "closing cross-device publish target", err)
	}
	if err := os.Rename(tmp, finalPath); err != nil {
		os.Remove(tmp)
		return newErr(KindIO, "renaming cross-device publish target into place", err)
	}
	if err := os.Remove(stagingPath); err != nil {
		return newErr(KindIO, "removing staging file after cross-device publish", err)
	}
	return nil
}

// newUUID generates a random v4 identifier for a file that did not
// request one explicitly.
func newUUID() string {
	return uuid.New().String()
}

func splitNameExt(path string) (stem, ext string) {
	base := filepath.Base(path)
	ext = filepath.Ext(base)
	stem = base[:len(base)-len(ext)]
	if len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	return stem, ext
}

func joinNameExt(stem, ext string) string {
	if ext == "" {
		return stem
	}
	return fmt.Sprintf("%s.%s", stem, ext)
}
