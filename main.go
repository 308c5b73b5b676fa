// The main package for the career-crawler executable.
package main

import (
	"github.com/AnonArchitect/career-crawler/cmd"
)

func main() {
	cmd.Execute()
}
