package service

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// StorageLocator is a parsed "arn:partition:s3:::bucket[/key-prefix]".
type StorageLocator struct {
	Partition string
	Bucket    string
	KeyPrefix string
}

func ParseStorageLocator(locator string) (StorageLocator, error) {
	if locator == "" {
		return StorageLocator{}, fmt.Errorf("storage locator is empty")
	}

	parsed, err := arn.Parse(locator)
	if err != nil {
		return StorageLocator{}, fmt.Errorf("storage locator %q: %w", locator, err)
	}
	if parsed.Service != "s3" {
		return StorageLocator{}, fmt.Errorf("storage locator %q: service must be s3, got %q", locator, parsed.Service)
	}
	if parsed.Region != "" || parsed.AccountID != "" {
		return StorageLocator{}, fmt.Errorf("storage locator %q: region and account must be empty", locator)
	}

	bucket, prefix, _ := strings.Cut(parsed.Resource, "/")
	if err := validateBucketName(bucket); err != nil {
		return StorageLocator{}, fmt.Errorf("storage locator %q: %w", locator, err)
	}

	return StorageLocator{
		Partition: parsed.Partition,
		Bucket:    bucket,
		KeyPrefix: strings.Trim(prefix, "/"),
	}, nil
}

// BucketArn drops the key prefix.
func (l StorageLocator) BucketArn() string {
	return arn.ARN{Partition: l.Partition, Service: "s3", Resource: l.Bucket}.String()
}

func (l StorageLocator) String() string {
	if l.KeyPrefix == "" {
		return l.BucketArn()
	}
	return l.BucketArn() + "/" + l.KeyPrefix
}

func validateBucketName(name string) error {
	if len(name) < 3 || len(name) > 63 {
		return fmt.Errorf("bucket name %q must be 3-63 characters", name)
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case (r == '-' || r == '.') && i > 0 && i < len(name)-1:
		default:
			return fmt.Errorf("bucket name %q contains invalid character %q", name, r)
		}
	}
	return nil
}
