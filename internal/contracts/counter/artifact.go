package counter

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DefaultArtifactPath is where forge writes the Counter artifact relative to
// the project root.
var DefaultArtifactPath = filepath.Join("out", "Counter.sol", "Counter.json")

// ErrEmptyBytecode is returned for artifacts of abstract contracts or
// interfaces.
var ErrEmptyBytecode = errors.New("artifact has no bytecode")

type artifact struct {
	Bytecode struct {
		Object string `json:"object"`
	} `json:"bytecode"`
}

// LoadArtifact reads the deployment bytecode from a forge build artifact.
func LoadArtifact(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return ParseArtifact(raw)
}

// ParseArtifact extracts bytecode.object from forge artifact JSON.
func ParseArtifact(raw []byte) ([]byte, error) {
	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("failed to parse artifact: %w", err)
	}

	object := strings.TrimSpace(a.Bytecode.Object)
	if object == "" || object == "0x" {
		return nil, ErrEmptyBytecode
	}
	if !strings.HasPrefix(object, "0x") {
		object = "0x" + object
	}
	code, err := hexutil.Decode(object)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode in artifact: %w", err)
	}
	return code, nil
}
