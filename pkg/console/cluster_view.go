package console

import (
	"github.com/go-logr/logr"

	"github.com/aditip149209/okview/pkg/binding"
)

const ClusterTag = "cluster"

// ClusterView is the controller of the cluster nodes page. It binds the
// cluster table to the page scope and exposes the page refresh.
type ClusterView struct {
	svc   *binding.Service
	scope *binding.Scope
	log   logr.Logger
}

func NewClusterView(svc *binding.Service, scope *binding.Scope, log logr.Logger, cfg ...binding.Config) (*ClusterView, error) {
	if _, err := svc.Bind(scope, ClusterTag, cfg...); err != nil {
		return nil, err
	}
	log.Info("cluster view created", "scope", scope.Name())
	return &ClusterView{svc: svc, scope: scope, log: log}, nil
}

func (v *ClusterView) Scope() *binding.Scope { return v.scope }

// Refresh clears the sort icons and requests the rows again in the
// last-known order.
func (v *ClusterView) Refresh() {
	v.log.V(1).Info("Refreshing cluster nodes page")
	v.svc.ResetSortIcons(v.scope)
	v.scope.SortCallback()
}

func (v *ClusterView) Close() {
	v.svc.Unbind(v.scope)
}
