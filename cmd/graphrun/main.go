// Command graphrun runs the workflow engine server and related tooling.
package main

func main() {
	Execute()
}
