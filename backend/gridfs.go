package backend

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSObjects keeps uploaded files in a GridFS bucket, one file per key.
type GridFSObjects struct {
	bucket *gridfs.Bucket
}

func NewGridFSObjects(db *mongo.Database, bucketName string) (*GridFSObjects, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("opening GridFS bucket %s: %w", bucketName, err)
	}
	return &GridFSObjects{bucket: bucket}, nil
}

type gridFSFile struct {
	ID       any    `bson:"_id"`
	Length   int64  `bson:"length"`
	Filename string `bson:"filename"`
	Metadata struct {
		ContentType string `bson:"contentType"`
	} `bson:"metadata"`
}

// ctxReader fails reads once ctx is done, which aborts a running upload.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Put streams r into a new file. The upload is aborted, leaving no chunks
// behind, when ctx is cancelled or its deadline passes.
func (o *GridFSObjects) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	uploadOpts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	stream, err := o.bucket.OpenUploadStream(key, uploadOpts)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := stream.SetWriteDeadline(deadline); err != nil {
			_ = stream.Abort()
			return err
		}
	}
	if _, err := io.Copy(stream, ctxReader{ctx: ctx, r: r}); err != nil {
		_ = stream.Abort()
		return err
	}
	return stream.Close()
}

// newestFile sorts files with the same name so the latest upload wins.
var newestFile = options.GridFSFind().
	SetSort(bson.D{{Key: "uploadDate", Value: -1}}).
	SetLimit(1)

func (o *GridFSObjects) find(ctx context.Context, key string) (*gridFSFile, error) {
	cursor, err := o.bucket.Find(bson.M{"filename": key}, newestFile)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	var file gridFSFile
	if err := cursor.Decode(&file); err != nil {
		return nil, err
	}
	return &file, nil
}

func (o *GridFSObjects) Open(ctx context.Context, key string) (*Object, error) {
	file, err := o.find(ctx, key)
	if err != nil {
		return nil, err
	}
	stream, err := o.bucket.OpenDownloadStream(file.ID)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Object{
		ReadCloser:  stream,
		Key:         key,
		ContentType: file.Metadata.ContentType,
		Size:        file.Length,
	}, nil
}

func (o *GridFSObjects) Delete(ctx context.Context, key string) error {
	file, err := o.find(ctx, key)
	if err != nil {
		return err
	}
	return o.bucket.Delete(file.ID)
}
