package gridfile

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes the top-level blocks of one grid file.
type fileRoot struct {
	Nodes  []*nodeBlock `hcl:"node,block"`
	Runs   []*runBlock  `hcl:"run,block"`
	Remain hcl.Body     `hcl:",remain"`
}

// nodeBlock is `node "factory" "arg" { ... }`.
type nodeBlock struct {
	Factory string         `hcl:"factory,label"`
	Arg     string         `hcl:"arg,label"`
	Inputs  []string       `hcl:"inputs,optional"`
	Params  hcl.Expression `hcl:"params,optional"`
}

// runBlock holds the execution settings of a grid.
type runBlock struct {
	Results                []string `hcl:"results,optional"`
	StopOnFailure          *bool    `hcl:"stop_on_failure,optional"`
	DeliverResultOnFailure *bool    `hcl:"deliver_result_on_failure,optional"`
	Strategy               *string  `hcl:"strategy,optional"`
	Budget                 *int     `hcl:"budget,optional"`
}
