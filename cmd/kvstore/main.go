// Command kvstore runs the TTL key-value store as an interactive command
// loop or as an HTTP service.
package main

func main() {
	Execute()
}
