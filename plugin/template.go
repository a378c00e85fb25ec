package plugin

import (
	"strconv"
	"strings"

	"github.com/sshlog/agent/event"
)

// Render substitutes every {{field}} placeholder in tmpl with the
// named field's value from evt, matching
// original_source/daemon/plugins/common/plugin.py's
// ActionPlugin._insert_event_data. Unknown fields are left untouched.
func Render(tmpl string, evt event.Event) string {
	out := tmpl
	for name, value := range fields(evt) {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}

func fields(evt event.Event) map[string]string {
	return map[string]string{
		"event_type":    evt.Kind.String(),
		"ptm_pid":       strconv.Itoa(evt.PtmPID),
		"user_id":       strconv.Itoa(evt.UserID),
		"username":      evt.Username,
		"pts_pid":       strconv.Itoa(evt.PtsPID),
		"shell_pid":     strconv.Itoa(evt.ShellPID),
		"tty_id":        strconv.Itoa(evt.TTYID),
		"start_time":    strconv.FormatInt(evt.StartTime, 10),
		"end_time":      strconv.FormatInt(evt.EndTime, 10),
		"filename":      evt.Filename,
		"args":          evt.Args,
		"pid":           strconv.Itoa(evt.PID),
		"parent_pid":    strconv.Itoa(evt.ParentPID),
		"exit_code":     strconv.Itoa(evt.ExitCode),
		"stdout":        evt.Stdout,
		"stdout_size":   strconv.Itoa(evt.StdoutSize),
		"terminal_data": evt.TerminalData,
		"target_path":   evt.TargetPath,
		"file_mode":     evt.FileMode,
		"server_ip":     evt.TCPInfo.ServerIP,
		"client_ip":     evt.TCPInfo.ClientIP,
		"server_port":   strconv.Itoa(evt.TCPInfo.ServerPort),
		"client_port":   strconv.Itoa(evt.TCPInfo.ClientPort),
	}
}
