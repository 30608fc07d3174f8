package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeClient struct {
	putKeys     []string
	deleteKeys  []string
	putErr      error
	deleteFails int
}

func (f *fakeClient) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.putKeys = append(f.putKeys, *input.Key)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteFails > 0 {
		f.deleteFails--
		return nil, errors.New("transient")
	}
	f.deleteKeys = append(f.deleteKeys, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func testStore(client objectClient) *Store {
	return &Store{
		cfg: Config{
			Bucket:    "parentpal",
			PublicURL: "https://cdn.example.com",
		},
		client: client,
	}
}

func TestUploadGeneratesUniqueKeys(t *testing.T) {
	fake := &fakeClient{}
	s := testStore(fake)

	key1, url1, err := s.Upload(context.Background(), "chores/7", strings.NewReader("a"), 1, "image/jpeg")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	key2, _, err := s.Upload(context.Background(), "chores/7", strings.NewReader("b"), 1, "image/jpeg")
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}

	if key1 == key2 {
		t.Errorf("keys collide: %q", key1)
	}
	if !strings.HasPrefix(key1, "chores/7/") || !strings.HasSuffix(key1, ".jpg") {
		t.Errorf("key = %q", key1)
	}
	if url1 != "https://cdn.example.com/"+key1 {
		t.Errorf("url = %q", url1)
	}
	if len(fake.putKeys) != 2 {
		t.Errorf("put calls = %d, want 2", len(fake.putKeys))
	}
}

func TestUploadErrorPropagates(t *testing.T) {
	fake := &fakeClient{putErr: errors.New("bucket gone")}
	s := testStore(fake)

	_, _, err := s.Upload(context.Background(), "avatars", strings.NewReader("x"), 1, "image/png")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDeleteRetriesTransientFailures(t *testing.T) {
	fake := &fakeClient{deleteFails: 2}
	s := testStore(fake)

	if err := s.Delete(context.Background(), "chores/7/x.jpg"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(fake.deleteKeys) != 1 {
		t.Errorf("delete calls that landed = %d, want 1", len(fake.deleteKeys))
	}
}

func TestDeleteEmptyKeyIsNoop(t *testing.T) {
	fake := &fakeClient{}
	s := testStore(fake)

	if err := s.Delete(context.Background(), ""); err != nil {
		t.Fatalf("delete empty key: %v", err)
	}
	if len(fake.deleteKeys) != 0 {
		t.Error("expected no delete calls")
	}
}

func TestDisabledStoreRejectsUploads(t *testing.T) {
	s := New(Config{})
	if s.Enabled() {
		t.Fatal("empty config must not enable storage")
	}
	if _, _, err := s.Upload(context.Background(), "x", strings.NewReader(""), 0, "image/png"); err == nil {
		t.Fatal("expected error from disabled store")
	}
}
