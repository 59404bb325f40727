// Package cloudcode deploys and fetches Cloud Code JavaScript scripts.
package cloudcode

import (
	"github.com/crmarques/liveops/internal/authoring"
	"github.com/crmarques/liveops/internal/payload"
	"github.com/crmarques/liveops/internal/services"
	"github.com/crmarques/liveops/resource"
)

const (
	Name        = "cloud-code-scripts"
	DisplayName = "Cloud Code Scripts"
	Extension   = ".js"
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
		Comparer:    services.Comparer(options.Compare, equalScripts),
		NewClient: func() (authoring.RemoteClient, error) {
			gateway, err := options.NewGateway()
			if err != nil {
				return nil, err
			}
			return &client{gateway: gateway}, nil
		},
	})
}

// equalScripts compares the source below the parameter block by digest and
// the declared parameters by value. The language is fixed and not compared.
func equalScripts(left resource.Value, right resource.Value) bool {
	leftCode, leftParams, leftErr := payloadParts(left)
	rightCode, rightParams, rightErr := payloadParts(right)
	if leftErr != nil || rightErr != nil {
		return payload.Equal(left, right)
	}
	if payload.DigestString(scriptBody(leftCode)) != payload.DigestString(scriptBody(rightCode)) {
		return false
	}
	if len(leftParams) != len(rightParams) {
		return false
	}
	for idx := range leftParams {
		if leftParams[idx] != rightParams[idx] {
			return false
		}
	}
	return true
}
