// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/KrisTC/mrpack-updater/cmd/mrpack-updater"

func main() {
	cmd.Execute()
}
