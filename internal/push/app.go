package push

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

var ErrNotConfigured = errors.New("firebase is not configured")

// NewApp initializes the Firebase app shared by Firestore, Auth and FCM.
// A credentials file takes precedence over a bare project id, which relies
// on application default credentials.
func NewApp(ctx context.Context, credentialsPath, projectID string) (*firebase.App, error) {
	if credentialsPath == "" && projectID == "" {
		return nil, ErrNotConfigured
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	return app, nil
}
