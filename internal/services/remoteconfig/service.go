// Package remoteconfig deploys and fetches Remote Config settings.
package remoteconfig

import (
	"github.com/crmarques/liveops/internal/authoring"
	"github.com/crmarques/liveops/internal/services"
)

const (
	Name        = "remote-config"
	DisplayName = "Remote Config"
	Extension   = ".rc"
)

func New(options services.Options) (*authoring.Service, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	return authoring.New(authoring.Backend{
		Name:        Name,
		DisplayName: DisplayName,
		Extension:   Extension,
		Codec:       codec{},
		Comparer:    services.Comparer(options.Compare, nil),
		NewClient: func() (authoring.RemoteClient, error) {
			gateway, err := options.NewGateway()
			if err != nil {
				return nil, err
			}
			return &client{gateway: gateway}, nil
		},
	})
}
