package models

// ProbeResponse is the HTTP-facing DTO for POST /probe: the parsed header,
// never the payload bytes. A nil *ProbeResponse (the handler answers 200
// with a JSON null body) means no valid header was found.
type ProbeResponse struct {
	Container string `json:"container"`
	Extension string `json:"extension"`
	WriteSize uint64 `json:"write_size"`
	LSBMode   string `json:"lsb_mode"`
	MetaSize  uint32 `json:"meta_size"`
	Filename  string `json:"filename"`
}
