// Package clipboard delivers the rendered export artifact to the system
// clipboard, the delivery channel behind the --copy flag and the clipboard
// configuration key.
package clipboard

import (
	"github.com/atotto/clipboard"
)

// Copier places artifact text on the system clipboard.
type Copier interface {
	Copy(artifactText string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct{}

// NewService constructs the clipboard delivery service.
func NewService() *Service {
	return &Service{}
}

// Copy writes the artifact text to the system clipboard.
func (service *Service) Copy(artifactText string) error {
	return clipboard.WriteAll(artifactText)
}

var _ Copier = (*Service)(nil)
