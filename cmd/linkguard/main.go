// Command linkguard crawls a site or a set of local files looking for
// broken links.
package main

import (
	cmd "github.com/arifwn/linkguard/internal/cli"
)

func main() {
	cmd.Execute()
}
