// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/staranto/stockctl/internal/cacheutil"
	"github.com/staranto/stockctl/internal/result"
)

// ErrNoBucket is returned when no bucket is configured.
var ErrNoBucket = errors.New("mirror bucket is not set")

// Client is the subset of the S3 API the mirror uses.
type Client interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Mirror syncs a cache directory with bucket/prefix.
type Mirror struct {
	client Client
	bucket string
	prefix string
	dir    string
}

// New returns a Mirror. The prefix is normalized to end with a slash.
func New(client Client, bucket, prefix, dir string) (*Mirror, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Mirror{client: client, bucket: bucket, prefix: prefix, dir: dir}, nil
}

// Report summarizes one sync.
type Report struct {
	Copied  []string
	Skipped []string
	Failed  []string
}

// remote lists the entries under the prefix keyed by file name.
func (m *Mirror) remote(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	p := s3.NewListObjectsV2Paginator(m.client, &s3.ListObjectsV2Input{
		Bucket: awsv2.String(m.bucket),
		Prefix: awsv2.String(m.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", m.bucket, m.prefix, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(awsv2.ToString(obj.Key), m.prefix)
			if name == "" || strings.Contains(name, "/") || !strings.HasSuffix(name, result.Extension) {
				continue
			}
			out[name] = awsv2.ToInt64(obj.Size)
		}
	}
	return out, nil
}

// Push uploads local entries the bucket doesn't already hold at the same
// size. Upload failures are logged and reported, not fatal.
func (m *Mirror) Push(ctx context.Context) (Report, error) {
	var rep Report

	local, err := cacheutil.Status(m.dir)
	if err != nil {
		return rep, err
	}
	remote, err := m.remote(ctx)
	if err != nil {
		return rep, err
	}

	for _, e := range local {
		if size, ok := remote[e.Name]; ok && size == e.Size {
			rep.Skipped = append(rep.Skipped, e.Name)
			continue
		}

		data, err := os.ReadFile(e.Path)
		if err != nil {
			log.WithError(err).Warnf("failed to read %s", e.Path)
			rep.Failed = append(rep.Failed, e.Name)
			continue
		}

		_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      awsv2.String(m.bucket),
			Key:         awsv2.String(m.prefix + e.Name),
			Body:        bytes.NewReader(data),
			ContentType: awsv2.String("application/json"),
		})
		if err != nil {
			log.WithError(err).Warnf("failed to upload %s", e.Name)
			rep.Failed = append(rep.Failed, e.Name)
			continue
		}
		log.Debugf("pushed %s", e.Name)
		rep.Copied = append(rep.Copied, e.Name)
	}

	return rep, nil
}

// Pull downloads remote entries that don't exist locally. Existing local
// files are never overwritten and undecodable objects are skipped.
func (m *Mirror) Pull(ctx context.Context) (Report, error) {
	var rep Report

	if err := cacheutil.EnsureDir(m.dir); err != nil {
		return rep, err
	}
	remote, err := m.remote(ctx)
	if err != nil {
		return rep, err
	}

	for _, name := range sortedNames(remote) {
		key := strings.TrimSuffix(name, result.Extension)
		if _, err := os.Stat(cacheutil.EntryPath(m.dir, key)); err == nil {
			rep.Skipped = append(rep.Skipped, name)
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			log.WithError(err).Warnf("failed to stat %s", name)
			rep.Failed = append(rep.Failed, name)
			continue
		}

		if err := m.fetch(ctx, key, name); err != nil {
			log.WithError(err).Warnf("failed to pull %s", name)
			rep.Failed = append(rep.Failed, name)
			continue
		}
		log.Debugf("pulled %s", name)
		rep.Copied = append(rep.Copied, name)
	}

	return rep, nil
}

func (m *Mirror) fetch(ctx context.Context, key, name string) error {
	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awsv2.String(m.bucket),
		Key:    awsv2.String(path.Join(strings.TrimSuffix(m.prefix, "/"), name)),
	})
	if err != nil {
		return err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return err
	}
	if _, err := result.Decode(data); err != nil {
		return err
	}
	return cacheutil.WriteRaw(m.dir, key, data)
}

func sortedNames(m map[string]int64) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
