package logmerge

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/beevik/etree"

	"github.com/kazz187/ccsetup/internal/xmldoc"
	"github.com/kazz187/ccsetup/pkg/cerr"
	"github.com/kazz187/ccsetup/pkg/storage"
)

// Publish uploads the serialized aggregate to st under key. An upload whose
// content equals the stored report is skipped; published reports whether a
// write happened.
func Publish(ctx context.Context, st storage.Storage, key string, doc *etree.Document) (published bool, err error) {
	if key == "" {
		return false, cerr.NewError(cerr.InvalidArgument, "publish key is required", nil)
	}
	data, err := xmldoc.Serialize(doc)
	if err != nil {
		return false, cerr.NewError(cerr.Internal, "failed to serialize aggregate log", err)
	}
	target := fmt.Sprintf("aggregate log %s", key)

	exists, err := st.Exists(ctx, key)
	if err != nil {
		return false, cerr.WrapStorageReadError(target, err)
	}
	if exists {
		current, err := st.Read(ctx, key)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// removed since Exists; write it again
		case err != nil:
			return false, cerr.WrapStorageReadError(target, err)
		case bytes.Equal(current, data):
			return false, nil
		}
	}

	if err := st.Write(ctx, key, data); err != nil {
		return false, cerr.WrapStorageWriteError(target, err)
	}
	return true, nil
}
