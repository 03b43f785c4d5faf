package adapters

import (
	"os/exec"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/interfaces"
)

// Backend names. The registry is closed; unknown names are a validation
// error at the service boundary.
const (
	BackendCFD     = "cfd-driver"
	BackendMD      = "md-driver"
	BackendRANS    = "rans-solver"
	BackendThermal = "thermal-solver"
	BackendDFT     = "dft-driver"
)

// NewCFDAdapter drives a shell case script (default run.sh, renameable via
// CFD_CMD) and scrapes residuals and force coefficients from its logs.
func NewCFDAdapter(logger arbor.ILogger) interfaces.SimulationAdapter {
	return newBackendAdapter(backendSpec{
		name:         BackendCFD,
		envVar:       "CFD_CMD",
		defaultCmd:   "run.sh",
		skeletonFile: "run.sh",
		skeletonBody: "#!/bin/bash\n" +
			"set -e\n" +
			"# CFD case pipeline\n" +
			"# mesh\n" +
			"# solve\n",
		wslCapable:  true,
		shellDriver: true,
		parseLogs:   ParseCFDMetrics,
	}, logger)
}

// NewMDAdapter runs a molecular-dynamics engine (MD_CMD, default md_eng)
// against in.simulation and scrapes thermo output.
func NewMDAdapter(logger arbor.ILogger) interfaces.SimulationAdapter {
	return newBackendAdapter(backendSpec{
		name:         BackendMD,
		envVar:       "MD_CMD",
		defaultCmd:   "md_eng",
		args:         []string{"-in", "in.simulation"},
		skeletonFile: "in.simulation",
		skeletonBody: "# MD input placeholder\n" +
			"units metal\n" +
			"atom_style atomic\n" +
			"# ... add system setup and run commands\n",
		wslCapable: true,
		parseLogs:  ParseMDMetrics,
	}, logger)
}

// NewRANSAdapter runs a RANS solver (RANS_CMD, default rans_solve) against
// a config.cfg stub.
func NewRANSAdapter(logger arbor.ILogger) interfaces.SimulationAdapter {
	return newBackendAdapter(backendSpec{
		name:         BackendRANS,
		envVar:       "RANS_CMD",
		defaultCmd:   "rans_solve",
		args:         []string{"config.cfg"},
		skeletonFile: "config.cfg",
		skeletonBody: "% RANS config placeholder\nSOLVER= RANS\n",
	}, logger)
}

// NewThermalAdapter runs a thermal solver (THERMAL_CMD, default
// thermal_solve) with its standard "run" argument; no skeleton file.
func NewThermalAdapter(logger arbor.ILogger) interfaces.SimulationAdapter {
	return newBackendAdapter(backendSpec{
		name:       BackendThermal,
		envVar:     "THERMAL_CMD",
		defaultCmd: "thermal_solve",
		args:       []string{"run"},
	}, logger)
}

// NewDFTAdapter runs a plane-wave DFT code (DFT_CMD, default dft_scf)
// against scf.in.
func NewDFTAdapter(logger arbor.ILogger) interfaces.SimulationAdapter {
	return newBackendAdapter(backendSpec{
		name:         BackendDFT,
		envVar:       "DFT_CMD",
		defaultCmd:   "dft_scf",
		args:         []string{"-in", "scf.in"},
		skeletonFile: "scf.in",
		skeletonBody: "&control\n calculation='scf'\n/\n",
		wslCapable:   true,
	}, logger)
}

// NewRegistry builds the closed backend registry.
func NewRegistry(logger arbor.ILogger) map[string]interfaces.SimulationAdapter {
	registry := make(map[string]interfaces.SimulationAdapter)
	for _, adapter := range []interfaces.SimulationAdapter{
		NewCFDAdapter(logger),
		NewMDAdapter(logger),
		NewRANSAdapter(logger),
		NewThermalAdapter(logger),
		NewDFTAdapter(logger),
	} {
		registry[adapter.BackendName()] = adapter
	}
	return registry
}

// Health reports executable availability per registered backend.
func Health(registry map[string]interfaces.SimulationAdapter) []interfaces.BackendHealth {
	_, wslErr := exec.LookPath("wsl")
	wslPresent := wslErr == nil

	report := make([]interfaces.BackendHealth, 0, len(registry))
	for name, adapter := range registry {
		ba, ok := adapter.(*backendAdapter)
		if !ok {
			report = append(report, interfaces.BackendHealth{Backend: name, Available: true})
			continue
		}

		cmd := ba.command()
		health := interfaces.BackendHealth{Backend: name, Executable: cmd}

		if ba.spec.shellDriver {
			// Driver scripts live in the job dir; the shell is what must
			// resolve here.
			health.Available = firstOnPath("bash", "sh") != ""
		} else {
			_, err := exec.LookPath(cmd)
			health.Available = err == nil
		}

		if !health.Available && ba.spec.wslCapable && wslPresent {
			health.Available = true
			health.ViaWSL = true
		}
		report = append(report, health)
	}
	return report
}
