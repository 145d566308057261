package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/antong314/dayly/internal/server/config"
)

func newStorageForTest() *StorageService {
	return NewStorageService(&sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "photos",
		PresignExpiry:  15 * time.Minute,
	})
}

func swapSeams(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	origDel := deleteObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
		deleteObject = origDel
	})
}

func TestStorageKeyFor(t *testing.T) {
	if got := StorageKeyFor("g1", "ph1"); got != "groups/g1/ph1" {
		t.Fatalf("unexpected key: %q", got)
	}
}

func Test_getClient_AppliesRegionAndEndpoint(t *testing.T) {
	swapSeams(t)
	svc := newStorageForTest()

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}

	var capturedBaseEndpoint string
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil {
			t.Fatalf("BaseEndpoint not set")
		}
		capturedBaseEndpoint = *opts.BaseEndpoint
		return &s3.Client{}
	}

	c, err := svc.getClient()
	if err != nil {
		t.Fatalf("getClient err: %v", err)
	}
	if c == nil {
		t.Fatalf("nil client")
	}
	if capturedBaseEndpoint != "http://127.0.0.1:9000" {
		t.Fatalf("BaseEndpoint mismatch: %q", capturedBaseEndpoint)
	}

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	if _, err := svc.getClient(); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestPresignPut_SignsConfiguredBucketAndKey(t *testing.T) {
	swapSeams(t)
	svc := newStorageForTest()

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}

	var gotBucket, gotKey string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotBucket = *in.Bucket
		gotKey = *in.Key
		return &v4.PresignedHTTPRequest{URL: "http://signed-put"}, nil
	}

	url, err := svc.PresignPut(context.Background(), "groups/g1/ph1")
	if err != nil {
		t.Fatalf("PresignPut err: %v", err)
	}
	if url != "http://signed-put" {
		t.Fatalf("unexpected url: %q", url)
	}
	if gotBucket != "photos" || gotKey != "groups/g1/ph1" {
		t.Fatalf("unexpected input: bucket=%q key=%q", gotBucket, gotKey)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("sign-fail")
	}
	if _, err := svc.PresignPut(context.Background(), "k"); err == nil {
		t.Fatalf("expected presign error")
	}
}

func TestPresignGet_SignsConfiguredBucketAndKey(t *testing.T) {
	swapSeams(t)
	svc := newStorageForTest()

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}

	var gotKey string
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotKey = *in.Key
		return &v4.PresignedHTTPRequest{URL: "http://signed-get"}, nil
	}

	url, err := svc.PresignGet(context.Background(), "groups/g1/ph1")
	if err != nil {
		t.Fatalf("PresignGet err: %v", err)
	}
	if url != "http://signed-get" {
		t.Fatalf("unexpected url: %q", url)
	}
	if gotKey != "groups/g1/ph1" {
		t.Fatalf("unexpected key: %q", gotKey)
	}
}

func TestDeleteObject_UsesConfiguredBucket(t *testing.T) {
	swapSeams(t)
	svc := newStorageForTest()

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}

	var gotBucket, gotKey string
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		gotBucket = *in.Bucket
		gotKey = *in.Key
		return &s3.DeleteObjectOutput{}, nil
	}

	if err := svc.DeleteObject(context.Background(), "groups/g1/old"); err != nil {
		t.Fatalf("DeleteObject err: %v", err)
	}
	if gotBucket != "photos" || gotKey != "groups/g1/old" {
		t.Fatalf("unexpected input: bucket=%q key=%q", gotBucket, gotKey)
	}

	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return nil, errors.New("del-fail")
	}
	if err := svc.DeleteObject(context.Background(), "k"); err == nil {
		t.Fatalf("expected delete error")
	}
}
