// Package gcp implements the Google Cloud connection test.
package gcp

import (
	"context"
	"fmt"

	compute "cloud.google.com/go/compute/apiv1"
	"cloud.google.com/go/compute/apiv1/computepb"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"

	errUtils "github.com/nimbusdfir/nimbus/errors"
)

// HelloResult is the outcome of the GCP connection test.
type HelloResult struct {
	Project string   `json:"project"`
	Regions []string `json:"regions"`
}

// Hello verifies that Application Default Credentials resolve and can list
// the project's regions. projectOverride wins over the credential's
// project when set.
func Hello(ctx context.Context, projectOverride string) (*HelloResult, error) {
	creds, err := google.FindDefaultCredentials(ctx, compute.DefaultAuthScopes()...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve Application Default Credentials: %v", errUtils.ErrNotLoggedIn, err)
	}

	project := projectOverride
	if project == "" {
		project = creds.ProjectID
	}
	if project == "" {
		return nil, fmt.Errorf("%w: no GCP project configured; set gcp.project or GOOGLE_CLOUD_PROJECT", errUtils.ErrNotFound)
	}

	client, err := compute.NewRegionsRESTClient(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	result := &HelloResult{Project: project}

	it := client.List(ctx, &computepb.ListRegionsRequest{Project: project})
	for {
		region, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list regions: %v", errUtils.ErrNotLoggedIn, err)
		}
		result.Regions = append(result.Regions, region.GetName())
	}

	return result, nil
}
