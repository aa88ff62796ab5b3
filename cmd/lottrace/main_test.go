package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf("[paths]\ndata_dir = %q\nlog_dir = %q\n",
		filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDecodeCommandJSON(t *testing.T) {
	out, err := runCommand(t, "decode", "CA-251223-0001", "--json")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var decoded struct {
		Kind        string
		ProcessCode string
		Valid       bool
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("unmarshal output: %v\n%s", err, out)
	}
	if !decoded.Valid || decoded.Kind != "legacy" || decoded.ProcessCode != "CA" {
		t.Fatalf("unexpected decode result %+v", decoded)
	}
}

func TestDecodeCommandReportsInvalid(t *testing.T) {
	out, err := runCommand(t, "decode", "!!!")
	if err != nil {
		t.Fatalf("decode must not fail on invalid input: %v", err)
	}
	if !strings.Contains(out, "Reason") {
		t.Fatalf("expected a reason row, got:\n%s", out)
	}
}

func TestValidateCommandRejectsBadInputs(t *testing.T) {
	// Crimping takes raw material only; feeding it its own output is an
	// input type error.
	out, err := runCommand(t, "validate", "CA", "CA-251223-0001")
	if err == nil {
		t.Fatalf("expected rejection, got:\n%s", out)
	}
	if !strings.Contains(out, "INVALID_INPUT_TYPE") {
		t.Fatalf("expected INVALID_INPUT_TYPE, got:\n%s", out)
	}
}

func TestValidateCommandAcceptsMaterial(t *testing.T) {
	if _, err := runCommand(t, "validate", "CA", "PABCQ100S99"); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCommand(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite without --overwrite")
	}
}

func TestLotLifecycleThroughCLI(t *testing.T) {
	config := writeTestConfig(t)

	startOut, err := runCommand(t, "--config", config, "lot", "start",
		"--process", "CA", "--product", "P001", "--qty", "100",
		"--material", "PABCQ100S99:100", "--json")
	if err != nil {
		t.Fatalf("lot start: %v", err)
	}
	var started struct {
		ID        int64
		LotNumber string
	}
	if err := json.Unmarshal([]byte(startOut), &started); err != nil {
		t.Fatalf("unmarshal start output: %v\n%s", err, startOut)
	}
	if !strings.HasPrefix(started.LotNumber, "TMP-") {
		t.Fatalf("expected temporary number, got %q", started.LotNumber)
	}

	completeOut, err := runCommand(t, "--config", config, "lot", "complete",
		fmt.Sprintf("%d", started.ID), "--qty", "95", "--defects", "5", "--json")
	if err != nil {
		t.Fatalf("lot complete: %v", err)
	}
	var completed struct {
		LotNumber string
		Status    string
	}
	if err := json.Unmarshal([]byte(completeOut), &completed); err != nil {
		t.Fatalf("unmarshal complete output: %v\n%s", err, completeOut)
	}
	if completed.Status != "COMPLETED" || strings.HasPrefix(completed.LotNumber, "TMP-") {
		t.Fatalf("unexpected completion %+v", completed)
	}

	listOut, err := runCommand(t, "--config", config, "lot", "list")
	if err != nil {
		t.Fatalf("lot list: %v", err)
	}
	if !strings.Contains(listOut, completed.LotNumber) {
		t.Fatalf("list missing completed lot:\n%s", listOut)
	}
}

func TestLotStartWithoutMaterialsThroughCLI(t *testing.T) {
	config := writeTestConfig(t)

	out, err := runCommand(t, "--config", config, "lot", "start",
		"--process", "CA", "--product", "P001", "--qty", "100")
	if err != nil {
		t.Fatalf("lot start: %v", err)
	}
	if !strings.Contains(out, "Started lot TMP-CA-") {
		t.Fatalf("expected a temporary lot, got:\n%s", out)
	}
}

func TestLotStartWarnsOnBOMShortfall(t *testing.T) {
	config := writeTestConfig(t)

	if _, err := runCommand(t, "--config", config, "bom", "set", "P001",
		"--line", "WIRE-A:2.5", "--line", "TERM-B:4"); err != nil {
		t.Fatalf("bom set: %v", err)
	}

	// 100 planned units need 250 WIRE-A and 400 TERM-B; only 200 WIRE-A
	// is supplied and TERM-B not at all.
	out, err := runCommand(t, "--config", config, "lot", "start",
		"--process", "CA", "--product", "P001", "--qty", "100",
		"--material", "PABCQ100S99:200:WIRE-A")
	if err != nil {
		t.Fatalf("lot start: %v", err)
	}
	if !strings.Contains(out, "material WIRE-A short 50") {
		t.Fatalf("expected WIRE-A shortfall warning, got:\n%s", out)
	}
	if !strings.Contains(out, "material TERM-B short 400") {
		t.Fatalf("expected TERM-B shortfall warning, got:\n%s", out)
	}
}

func TestSeqCommandsThroughCLI(t *testing.T) {
	config := writeTestConfig(t)

	out, err := runCommand(t, "--config", config, "seq", "next", "CA", "completion", "--width", "3")
	if err != nil {
		t.Fatalf("seq next: %v", err)
	}
	if !strings.Contains(out, "001") {
		t.Fatalf("expected formatted value 001, got:\n%s", out)
	}

	if _, err := runCommand(t, "--config", config, "seq", "reset", "--all"); err != nil {
		t.Fatalf("seq reset: %v", err)
	}
}

func TestParseMaterialSpec(t *testing.T) {
	material, err := parseMaterialSpec("LOT1:25")
	if err != nil {
		t.Fatalf("parseMaterialSpec: %v", err)
	}
	if material.LotNo != "LOT1" || material.Quantity != 25 {
		t.Fatalf("unexpected material %+v", material)
	}

	material, err = parseMaterialSpec("LOT1:25:wire-a:Copper wire")
	if err != nil {
		t.Fatalf("parseMaterialSpec with code and name: %v", err)
	}
	if material.MaterialCode != "WIRE-A" || material.MaterialName != "Copper wire" {
		t.Fatalf("unexpected material %+v", material)
	}

	for _, bad := range []string{"LOT1", ":5", "LOT1:x", "LOT1:0"} {
		if _, err := parseMaterialSpec(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseClaimSpec(t *testing.T) {
	claim, err := parseClaimSpec("3:15")
	if err != nil {
		t.Fatalf("parseClaimSpec: %v", err)
	}
	if claim.CarryOverID != 3 || claim.Quantity != 15 {
		t.Fatalf("unexpected claim %+v", claim)
	}

	for _, bad := range []string{"3", "0:5", "3:0", "x:5"} {
		if _, err := parseClaimSpec(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
