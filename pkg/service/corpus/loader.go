package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"

	"github.com/epi-watch/malkb/pkg/domain/model"
	"github.com/epi-watch/malkb/pkg/domain/types"
	"github.com/epi-watch/malkb/pkg/utils/logging"
	"github.com/epi-watch/malkb/pkg/utils/safe"
)

const gcsPrefix = "gs://"

// Load reads knowledge entries from the given path. A path starting
// with gs:// is read from Google Cloud Storage, anything else from the
// local filesystem. Entries are validated eagerly so a malformed corpus
// fails here instead of opaquely inside the index build.
func Load(ctx context.Context, path string) ([]model.KnowledgeEntry, error) {
	var raw []byte
	var err error
	if strings.HasPrefix(path, gcsPrefix) {
		raw, err = readObject(ctx, path)
	} else {
		raw, err = readFile(path)
	}
	if err != nil {
		return nil, err
	}

	var entries []model.KnowledgeEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, goerr.Wrap(types.ErrCorpusFormat, "failed to parse corpus",
			goerr.V("path", path),
			goerr.V("cause", err.Error()))
	}
	if len(entries) == 0 {
		return nil, goerr.Wrap(types.ErrCorpusFormat, "corpus has no entries", goerr.V("path", path))
	}

	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, goerr.Wrap(types.ErrCorpusFormat, "invalid corpus entry",
				goerr.V("path", path),
				goerr.V("entry", i),
				goerr.V("cause", err.Error()))
		}
	}

	logging.From(ctx).Info("loaded knowledge corpus", "path", path, "entries", len(entries))
	return entries, nil
}

func readFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, goerr.Wrap(types.ErrCorpusNotFound, "corpus file does not exist", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read corpus file", goerr.V("path", path))
	}
	return raw, nil
}

func readObject(ctx context.Context, path string) ([]byte, error) {
	bucket, object, err := parseObjectPath(path)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}
	defer safe.Close(ctx, client)

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, goerr.Wrap(types.ErrCorpusNotFound, "corpus object does not exist", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to open corpus object", goerr.V("path", path))
	}
	defer safe.Close(ctx, rc)

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read corpus object", goerr.V("path", path))
	}
	return raw, nil
}

func parseObjectPath(path string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(path, gcsPrefix)
	bucket, object, found := strings.Cut(trimmed, "/")
	if !found || bucket == "" || object == "" {
		return "", "", goerr.New("invalid gs:// corpus path", goerr.V("path", path))
	}
	return bucket, object, nil
}
