// Package gcp builds authenticated Google API clients for the importer.
package gcp

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
	storageapi "google.golang.org/api/storage/v1"
)

// Scopes covers every API the importer touches. Drive and Sheets are only
// read.
var Scopes = []string{
	sheetsapi.SpreadsheetsReadonlyScope,
	driveapi.DriveReadonlyScope,
	storageapi.DevstorageReadWriteScope,
}

// NewHTTPClient returns an OAuth2 client. With a service account file it
// authenticates as that account, optionally impersonating subject; otherwise
// Application Default Credentials are used.
func NewHTTPClient(ctx context.Context, serviceAccountFile, subject string) (*http.Client, error) {
	if serviceAccountFile == "" {
		client, err := google.DefaultClient(ctx, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("default credentials: %w", err)
		}
		return client, nil
	}

	data, err := os.ReadFile(os.ExpandEnv(serviceAccountFile))
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	if subject != "" {
		conf.Subject = subject
	}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx)), nil
}

// Services are the Google API clients sharing one HTTP client.
type Services struct {
	Sheets  *sheetsapi.Service
	Drive   *driveapi.Service
	Storage *storageapi.Service
}

func NewServices(ctx context.Context, client *http.Client) (*Services, error) {
	opt := option.WithHTTPClient(client)

	sheetsSvc, err := sheetsapi.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	driveSvc, err := driveapi.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	storageSvc, err := storageapi.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("storage service: %w", err)
	}
	return &Services{Sheets: sheetsSvc, Drive: driveSvc, Storage: storageSvc}, nil
}
