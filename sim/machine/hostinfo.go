package machine

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
)

// logHostInfo logs the resources of the machine the run is placed on.
// Failures to query are logged and otherwise ignored.
func logHostInfo(log logrus.FieldLogger) {
	fields := logrus.Fields{"gomaxprocs": runtime.GOMAXPROCS(0)}
	if n, err := cpu.Counts(true); err == nil {
		fields["cpus"] = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fields["mem_total_mb"] = vm.Total >> 20
		fields["mem_available_mb"] = vm.Available >> 20
	} else {
		log.WithError(err).Debug("Querying memory")
	}
	log.WithFields(fields).Info("Host resources")
}

// logProcessStats logs CPU and resident memory use of this process.
func logProcessStats(log logrus.FieldLogger) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.WithError(err).Debug("Querying process")
		return
	}
	fields := logrus.Fields{}
	if pct, err := proc.CPUPercent(); err == nil {
		fields["cpu_percent"] = pct
	}
	if info, err := proc.MemoryInfo(); err == nil {
		fields["rss_mb"] = info.RSS >> 20
	}
	log.WithFields(fields).Info("Process resources")
}
