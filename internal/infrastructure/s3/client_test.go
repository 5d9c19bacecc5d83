package s3infra

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-bff-auth/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	putIn    *s3.PutObjectInput
	body     string
	deleteIn *s3.DeleteObjectInput
	err      error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putIn = in
	if in.Body != nil {
		b, _ := io.ReadAll(in.Body)
		f.body = string(b)
	}
	return &s3.PutObjectOutput{}, f.err
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleteIn = in
	return &s3.DeleteObjectOutput{}, f.err
}

func tempUpload(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "avatar.PNG")
	require.NoError(t, os.WriteFile(p, []byte("png-bytes"), 0o600))
	return p
}

var testCfg = &config.Config{S3BucketName: "avatars", S3Folder: "profilePics", AWSRegion: "eu-west-1"}

func TestAvatarStore_Upload(t *testing.T) {
	fake := &fakeObjects{}
	store := NewAvatarStore(fake, testCfg)
	local := tempUpload(t)

	avatar, err := store.Upload(context.Background(), local, "image/png")
	require.NoError(t, err)

	key := aws.ToString(fake.putIn.Key)
	assert.True(t, strings.HasPrefix(key, "profilePics/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "avatars", aws.ToString(fake.putIn.Bucket))
	assert.Equal(t, "image/png", aws.ToString(fake.putIn.ContentType))
	assert.Equal(t, "png-bytes", fake.body)
	assert.Equal(t, key, avatar.ID)
	assert.Equal(t, "https://avatars.s3.eu-west-1.amazonaws.com/"+key, avatar.URL)

	_, statErr := os.Stat(local)
	assert.True(t, os.IsNotExist(statErr), "local file must be removed")
}

func TestAvatarStore_UploadFailureStillRemovesLocal(t *testing.T) {
	store := NewAvatarStore(&fakeObjects{err: errors.New("denied")}, testCfg)
	local := tempUpload(t)

	_, err := store.Upload(context.Background(), local, "image/png")
	assert.ErrorContains(t, err, "denied")
	_, statErr := os.Stat(local)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAvatarStore_CustomEndpointURL(t *testing.T) {
	cfg := *testCfg
	cfg.AWSEndpointURL = "http://localhost:4566/"
	store := NewAvatarStore(&fakeObjects{}, &cfg)

	avatar, err := store.Upload(context.Background(), tempUpload(t), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(avatar.URL, "http://localhost:4566/avatars/profilePics/"))
}

func TestAvatarStore_Delete(t *testing.T) {
	fake := &fakeObjects{}
	store := NewAvatarStore(fake, testCfg)

	require.NoError(t, store.Delete(context.Background(), "profilePics/x.png"))
	assert.Equal(t, "profilePics/x.png", aws.ToString(fake.deleteIn.Key))

	fake.deleteIn = nil
	require.NoError(t, store.Delete(context.Background(), ""))
	assert.Nil(t, fake.deleteIn)
}
