package schema

import _ "embed"

// CommandsV1Schema contains the JSON schema for the saved command list.
//
//go:embed commands.v1.json
var CommandsV1Schema []byte
