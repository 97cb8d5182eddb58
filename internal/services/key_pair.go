package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/celestiaorg/ec2api/internal/compute"
	"github.com/celestiaorg/ec2api/internal/keystore"
	"github.com/celestiaorg/ec2api/internal/logger"
)

const codeKeyPairDuplicate = "InvalidKeyPair.Duplicate"

// KeyPair ensures named EC2 key pairs exist and keeps the private key of the ones it creates
type KeyPair struct {
	client compute.EC2API
	store  *keystore.Store
}

// NewKeyPairService creates a key pair service writing private keys to store
func NewKeyPairService(client compute.EC2API, store *keystore.Store) *KeyPair {
	return &KeyPair{client: client, store: store}
}

// EnsureKeyPair returns name after making sure the key pair exists. A new key pair's private key
// is written to <key_dir>/<name>.pem before returning; existing key pairs are reused untouched.
func (s *KeyPair) EnsureKeyPair(ctx context.Context, name string) (string, error) {
	exists, err := s.exists(ctx, name)
	if err != nil {
		return "", err
	}
	if exists {
		logger.InfoWithFields("Key pair already exists, reusing it", logger.Fields{"key_name": name})
		return name, nil
	}

	out, err := s.client.CreateKeyPair(ctx, &ec2.CreateKeyPairInput{KeyName: aws.String(name)})
	if err != nil {
		if compute.APIErrorCode(err) == codeKeyPairDuplicate {
			logger.InfoWithFields("Key pair was created concurrently, reusing it", logger.Fields{"key_name": name})
			return name, nil
		}
		return "", fmt.Errorf("failed to create key pair %s: %w", name, compute.Classify("CreateKeyPair", err))
	}

	material := aws.ToString(out.KeyMaterial)
	if material == "" {
		return "", compute.NewError("CreateKeyPair", compute.KindUnexpected,
			fmt.Errorf("no key material returned for key pair %s", name))
	}

	path, err := s.store.Write(name, material)
	if err != nil {
		return "", compute.NewError("CreateKeyPair", compute.KindUnexpected, err)
	}

	logger.InfoWithFields("Created key pair", logger.Fields{"key_name": name, "path": path})
	return name, nil
}

func (s *KeyPair) exists(ctx context.Context, name string) (bool, error) {
	out, err := s.client.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{})
	if err != nil {
		return false, fmt.Errorf("failed to list key pairs: %w", compute.Classify("DescribeKeyPairs", err))
	}
	for _, kp := range out.KeyPairs {
		if aws.ToString(kp.KeyName) == name {
			return true, nil
		}
	}
	return false, nil
}
