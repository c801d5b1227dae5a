// Command sample is an external extension serving direct media links and
// templated subtitle tracks. Build it into the plugins directory next to
// its manifest:
//
//	go build -o $DATA/plugins/sample.vvf ./plugins/sample
//	cp plugins/sample/sample.json $DATA/plugins/sample.json
package main

import "vividfusion/internal/plugin/remote"

func main() {
	remote.Serve(ClassName, &Client{})
}
