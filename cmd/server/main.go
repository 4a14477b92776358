package main

import "companyms/internal/app/server"

func main() {
	server.Run()
}
