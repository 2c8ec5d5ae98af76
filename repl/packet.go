package repl

import "encoding/json"

// Packet is the uniform shape of every notification: commands that were
// sent, results that matched them, and errors.
type Packet struct {
	Port        int    `json:"port"`
	BaudRate    int    `json:"baud_rate"`
	PortName    string `json:"port_name"`
	CommandText string `json:"command_text,omitempty"`
	ResultText  string `json:"result_text,omitempty"`
	HasExecuted bool   `json:"has_executed"`

	// Err is set on packets delivered through Observer.OnError.
	Err error `json:"-"`
}

// MarshalJSON renders Err as a string field.
func (p Packet) MarshalJSON() ([]byte, error) {
	type plain Packet
	out := struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain: plain(p)}
	if p.Err != nil {
		out.Error = p.Err.Error()
	}
	return json.Marshal(out)
}

// ConnInfo is the metadata of an open connection.
type ConnInfo struct {
	Port     int
	BaudRate int
	PortName string
}
