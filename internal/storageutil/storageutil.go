package storageutil

import (
	"context"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
	"gocloud.dev/blob"

	// Bucket URL schemes accepted by OpenBucket.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
)

const (
	JSONExtension = ".json"
	LZ4Extension  = ".lz4"

	writeTimeout = 5 * time.Second
)

// OpenBucket opens a bucket from a URL such as file:///tmp/trees,
// gs://bucket or mem://.
func OpenBucket(ctx context.Context, url string) (*blob.Bucket, error) {
	return blob.OpenBucket(ctx, url)
}

// ObjectName returns a random object name, with the extension matching the
// encoding.
func ObjectName(prefix string, compressed bool) string {
	name := strings.ReplaceAll(uuid.New().String(), "-", "") + JSONExtension
	if compressed {
		name += LZ4Extension
	}
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

// IsCompressed tells from the object name whether it holds LZ4 data.
func IsCompressed(objectName string) bool {
	return strings.HasSuffix(objectName, LZ4Extension)
}

// Write encodes d as JSON and writes it to the bucket, compressing it with
// LZ4 when the object name ends with .lz4.
func Write(ctx context.Context, b *blob.Bucket, objectName string, d interface{}) error {
	if IsCompressed(objectName) {
		return CompressedWrite(ctx, b, objectName, d)
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	ow, err := b.NewWriter(ctx, objectName, &blob.WriterOptions{ContentType: "application/json"})
	if err != nil {
		return err
	}
	err = gojson.NewEncoder(ow).Encode(d)
	if err != nil {
		_ = ow.Close()
		return err
	}
	return ow.Close()
}

// CompressedWrite compresses and writes data to the bucket.
func CompressedWrite(ctx context.Context, b *blob.Bucket, objectName string, d interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	ow, err := b.NewWriter(ctx, objectName, nil)
	if err != nil {
		return err
	}
	zw := lz4.NewWriter(ow)
	_ = zw.Apply(lz4.CompressionLevelOption(lz4.Level9))
	jw := gojson.NewEncoder(zw)
	err = jw.Encode(d)
	if err != nil {
		_ = ow.Close()
		return err
	}
	err = zw.Close()
	if err != nil {
		_ = ow.Close()
		return err
	}
	return ow.Close()
}
