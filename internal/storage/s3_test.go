package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type uploaderStub struct {
	keys   []string
	bodies []string
}

func (u *uploaderStub) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	u.keys = append(u.keys, aws.ToString(input.Key))
	u.bodies = append(u.bodies, string(data))
	return &manager.UploadOutput{}, nil
}

type deleterStub struct {
	keys []string
}

func (d *deleterStub) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	d.keys = append(d.keys, aws.ToString(input.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StorageSaveAndDeleteRoundTrip(t *testing.T) {
	uploader := &uploaderStub{}
	deleter := &deleterStub{}
	store := newS3Storage(uploader, deleter, "media", "https://cdn.example.com/")

	location, err := store.Save(context.Background(), "/avatars/u1.png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if location != "https://cdn.example.com/avatars/u1.png" {
		t.Fatalf("unexpected location %q", location)
	}
	if uploader.keys[0] != "avatars/u1.png" || uploader.bodies[0] != "png" {
		t.Fatalf("unexpected upload %v %v", uploader.keys, uploader.bodies)
	}

	if err := store.Delete(context.Background(), location); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(deleter.keys) != 1 || deleter.keys[0] != "avatars/u1.png" {
		t.Fatalf("unexpected deleted keys %v", deleter.keys)
	}
}

func TestS3StorageRejectsForeignLocations(t *testing.T) {
	store := newS3Storage(&uploaderStub{}, &deleterStub{}, "media", "https://cdn.example.com")

	err := store.Delete(context.Background(), "https://elsewhere.example.com/x.png")
	if !errors.Is(err, ErrForeignLocation) {
		t.Fatalf("expected ErrForeignLocation, got %v", err)
	}
	if _, err := store.Save(context.Background(), "", strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty key")
	}
}
