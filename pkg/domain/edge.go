package domain

import "fmt"

// Edge is a directed connection from an output port to an input port.
// Ports are addressed by their index in the node's ordered port lists.
type Edge struct {
	From     NodeID `json:"from" yaml:"from"`
	FromPort int    `json:"from_port" yaml:"from_port"`
	To       NodeID `json:"to" yaml:"to"`
	ToPort   int    `json:"to_port" yaml:"to_port"`
}

func (e Edge) String() string {
	return fmt.Sprintf("%d:%d->%d:%d", e.From, e.FromPort, e.To, e.ToPort)
}

// Less orders edges by source, then target.
func (e Edge) Less(o Edge) bool {
	if e.From != o.From {
		return e.From < o.From
	}
	if e.FromPort != o.FromPort {
		return e.FromPort < o.FromPort
	}
	if e.To != o.To {
		return e.To < o.To
	}
	return e.ToPort < o.ToPort
}
