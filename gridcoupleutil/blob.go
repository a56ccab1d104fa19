/*
Copyright © 2019 the GridCouple authors.
This file is part of GridCouple.

GridCouple is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

GridCouple is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with GridCouple.  If not, see <http://www.gnu.org/licenses/>.
*/

package gridcoupleutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
	"github.com/google/go-cloud/gcp"
	"github.com/sirupsen/logrus"
)

// IsBlob returns whether the given filename represents a blob
// (i.e., if it starts with `gs://`, 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name'.
// Only the host part of bucketName is used as the bucket name.
// The accepted storage providers are "file" for a directory relative to
// the working directory, "gs" for Google Cloud Storage, and "s3" for AWS S3.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("gridcouple: opening bucket: %v", err)
	}
	switch u.Scheme {
	case "file":
		return fileblob.NewBucket(u.Hostname())
	case "gs":
		return gsBucket(ctx, u.Hostname())
	case "s3":
		return s3Bucket(ctx, u.Hostname())
	default:
		return nil, fmt.Errorf("gridcouple: invalid storage provider %q", u.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, name, c)
}

// s3Bucket opens an s3 storage bucket. Credentials are read from the
// AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables and
// the region from AWS_REGION.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, fmt.Errorf("gridcouple: creating AWS session: %v", err)
	}
	return s3blob.OpenBucket(ctx, s, name)
}

// blobKey splits a blob path into its bucket and key.
func blobKey(path string) (bucket, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", fmt.Errorf("gridcouple: parsing blob path %s: %v", path, err)
	}
	return u.Scheme + "://" + u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// expandShp returns the given file and its associated [.dbf, .shx, .prj]
// files if it has the .shp extension, and the given file otherwise.
func expandShp(filename string) []string {
	o := []string{filename}
	if filepath.Ext(filename) != ".shp" {
		return o
	}
	for _, ext := range []string{".dbf", ".shx", ".prj"} {
		o = append(o, strings.TrimSuffix(filename, ".shp")+ext)
	}
	return o
}

func isShpSupport(path string) bool {
	switch filepath.Ext(path) {
	case ".dbf", ".shx", ".prj":
		return true
	}
	return false
}

// maybeDownload returns path if it is a local file. If path is an http(s)
// URL or a blob, the file is downloaded to a temporary directory and the
// local path is returned.
func maybeDownload(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	switch {
	case strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://"):
		return download(path, func(name string) (io.ReadCloser, error) {
			resp, err := http.Get(name)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				return nil, fmt.Errorf("gridcouple: downloading %s: %s", name, resp.Status)
			}
			return resp.Body, nil
		})
	case IsBlob(path):
		bucketName, _, err := blobKey(path)
		if err != nil {
			return "", err
		}
		bucket, err := OpenBucket(ctx, bucketName)
		if err != nil {
			return "", err
		}
		return download(path, func(name string) (io.ReadCloser, error) {
			_, key, err := blobKey(name)
			if err != nil {
				return nil, err
			}
			return bucket.NewReader(ctx, key)
		})
	}
	return path, nil
}

// download copies path, and its associated files if it is a shapefile,
// into a new temporary directory using open.
func download(path string, open func(string) (io.ReadCloser, error)) (string, error) {
	dir, err := os.MkdirTemp("", "gridcouple")
	if err != nil {
		return "", fmt.Errorf("gridcouple: creating temporary download directory: %v", err)
	}
	names := expandShp(path)
	for _, name := range names {
		if err := copyTo(filepath.Join(dir, filepath.Base(name)), name, open); err != nil {
			return "", err
		}
	}
	logrus.WithFields(logrus.Fields{"from": path, "to": dir}).Debug("downloaded input file")
	return filepath.Join(dir, filepath.Base(names[0])), nil
}

func copyTo(dst, src string, open func(string) (io.ReadCloser, error)) error {
	r, err := open(src)
	if err != nil {
		return fmt.Errorf("gridcouple: opening %s for download: %v", src, err)
	}
	defer r.Close()
	w, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("gridcouple: creating file for download: %v", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("gridcouple: downloading %s: %v", src, err)
	}
	return w.Close()
}

type uploader struct {
	// files is a set of file path pairs. The first of each pair
	// is a local file path and the second is a blob storage
	// path where it should be uploaded to.
	files [][2]string
	dir   string
}

// maybeUpload checks whether the given output file path refers to a blob
// storage location. If it does, a temporary local path is returned and
// the file is uploaded when upload is called.
func (u *uploader) maybeUpload(path string) (string, error) {
	if !IsBlob(path) {
		return path, nil
	}
	if u.dir == "" {
		var err error
		if u.dir, err = os.MkdirTemp("", "gridcouple"); err != nil {
			return "", fmt.Errorf("gridcouple: creating temporary output directory: %v", err)
		}
	}
	files := expandShp(path)
	for _, f := range files {
		u.files = append(u.files, [2]string{filepath.Join(u.dir, filepath.Base(f)), f})
	}
	return filepath.Join(u.dir, filepath.Base(files[0])), nil
}

// upload copies the output files to blob storage. Shapefile support
// files that were not created are skipped.
func (u *uploader) upload(ctx context.Context) error {
	for _, files := range u.files {
		r, err := os.Open(files[0])
		if os.IsNotExist(err) && isShpSupport(files[0]) {
			continue
		}
		if err != nil {
			return fmt.Errorf("gridcouple: opening file %s for upload: %v", files[0], err)
		}
		err = uploadFile(ctx, r, files[1])
		r.Close()
		if err != nil {
			return err
		}
		logrus.WithField("to", files[1]).Debug("uploaded output file")
	}
	return nil
}

func uploadFile(ctx context.Context, r io.Reader, path string) error {
	bucketName, key, err := blobKey(path)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("gridcouple: opening bucket to upload %s: %v", path, err)
	}
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("gridcouple: opening writer to upload %s: %v", path, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("gridcouple: uploading %s: %v", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gridcouple: uploading %s: %v", path, err)
	}
	return nil
}
