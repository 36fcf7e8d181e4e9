// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"context"
	"testing"

	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Options(t *testing.T) {
	var so s3v2.Options
	S3Options()(&so)
	assert.Nil(t, so.BaseEndpoint)
	assert.False(t, so.UsePathStyle)

	S3Options(WithEndpoint("http://localhost:9000"))(&so)
	require.NotNil(t, so.BaseEndpoint)
	assert.Equal(t, "http://localhost:9000", *so.BaseEndpoint)
	assert.True(t, so.UsePathStyle)
}

func TestLoadAWSConfigRegion(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent")
	t.Setenv("AWS_PROFILE", "")

	cfg, err := LoadAWSConfig(context.Background(), WithRegion("eu-west-1"))
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
}
