package ir

// CaseOK is the receipt case of an applied command. Rejected commands carry
// their error code instead.
const CaseOK = "ok"

// Receipt is the journaled outcome of one command.
type Receipt struct {
	Seq       int64    `json:"seq"`
	TxID      string   `json:"tx_id"`
	CommandID string   `json:"command_id"`
	Kind      Kind     `json:"kind"`
	Caller    string   `json:"caller"`
	Case      string   `json:"case"`
	Result    IRObject `json:"result"`
}

// OK reports whether the command was applied.
func (r Receipt) OK() bool {
	return r.Case == CaseOK
}
