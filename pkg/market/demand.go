package market

import (
	"fmt"
	"time"
)

const (
	PropertyNodeName    = "golem.node.id.name"
	PropertySubnet      = "golem.node.debug.subnet"
	PropertyTaskPackage = "golem.srv.comp.task_package"
	PropertyExpiration  = "golem.srv.comp.expiration"
	PropertyRuntimeName = "golem.runtime.name"
)

type DemandParams struct {
	NodeName    string
	Subnet      string
	TaskPackage string
	RuntimeName string
	// Deadline is both the demand's expiration and the negotiation deadline.
	Deadline time.Time
}

func NewDemand(params DemandParams) Demand {
	return Demand{
		Properties: map[string]any{
			PropertyNodeName:    params.NodeName,
			PropertySubnet:      params.Subnet,
			PropertyTaskPackage: params.TaskPackage,
			PropertyExpiration:  params.Deadline.UnixMilli(),
		},
		Constraints: fmt.Sprintf("(&(%s=%s)(%s=%s))",
			PropertyRuntimeName, params.RuntimeName,
			PropertySubnet, params.Subnet),
		Deadline: params.Deadline,
	}
}
