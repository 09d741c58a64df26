// Command gameflow validates, compiles, visualizes, runs and serves
// GameFlow graphs.
package main

func main() {
	Execute()
}
